package compare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/mlkem-acvp/acvperr"
	"github.com/lattice-substrate/mlkem-acvp/compare"
	"github.com/lattice-substrate/mlkem-acvp/result"
	"github.com/lattice-substrate/mlkem-acvp/vector"
)

const produced = `{"vsId":1,"algorithm":"ML-KEM","mode":"keyGen","revision":"FIPS203","isSample":false,
"testGroups":[{"tgId":1,"tests":[{"tcId":1,"ek":"AA","dk":"BB"},{"tcId":2,"ek":"CC","dk":"DD"}]}]}`

func TestCanonicalizeSortsKeysKeepsArrays(t *testing.T) {
	got, err := compare.Canonicalize([]byte(`{ "z": [3, 1, 2], "a": {"y": 1, "b": true} }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":true,"y":1},"z":[3,1,2]}`, string(got))
}

func TestCanonicalizeIdempotent(t *testing.T) {
	once, err := compare.Canonicalize([]byte(produced))
	require.NoError(t, err)
	twice, err := compare.Canonicalize(once)
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))
}

func TestCanonicalizeRejectsInvalid(t *testing.T) {
	_, err := compare.Canonicalize([]byte(`{"a":`))
	require.Error(t, err)
}

func TestDocumentsKeyOrderIndependent(t *testing.T) {
	expected := `{"testGroups":[{"tests":[{"dk":"BB","ek":"AA","tcId":1},{"ek":"CC","tcId":2,"dk":"DD"}],"tgId":1}],
"isSample":false,"revision":"FIPS203","mode":"keyGen","algorithm":"ML-KEM","vsId":1}`
	require.NoError(t, compare.Documents([]byte(produced), []byte(expected)))
}

func TestDocumentsOrderSensitive(t *testing.T) {
	reordered := `{"vsId":1,"algorithm":"ML-KEM","mode":"keyGen","revision":"FIPS203","isSample":false,
"testGroups":[{"tgId":1,"tests":[{"tcId":2,"ek":"CC","dk":"DD"},{"tcId":1,"ek":"AA","dk":"BB"}]}]}`
	err := compare.Documents([]byte(produced), []byte(reordered))
	require.Error(t, err)
	assert.Equal(t, acvperr.ComparisonMismatch, acvperr.ClassOf(err))
}

func TestDocumentsMismatchDetail(t *testing.T) {
	expected := `{"vsId":1,"algorithm":"ML-KEM","mode":"keyGen","revision":"FIPS203","isSample":false,
"testGroups":[{"tgId":1,"tests":[{"tcId":1,"ek":"AA","dk":"BB"},{"tcId":2,"ek":"CC","dk":"DE"}]}]}`
	err := compare.Documents([]byte(produced), []byte(expected))

	var e *acvperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, acvperr.ComparisonMismatch, e.Class)
	assert.Contains(t, e.Detail, `"DE"`)
	assert.Contains(t, e.Detail, `"DD"`)
}

func TestDocumentsTypeSensitive(t *testing.T) {
	a := `{"tcId":1}`
	b := `{"tcId":"1"}`
	err := compare.Documents([]byte(a), []byte(b))
	assert.True(t, acvperr.Is(err, acvperr.ComparisonMismatch))
}

func TestDocumentsInvalidExpected(t *testing.T) {
	err := compare.Documents([]byte(produced), []byte(`[`))
	assert.Equal(t, acvperr.Load, acvperr.ClassOf(err))
}

func TestCanonicalizeValueMatchesResultDocument(t *testing.T) {
	doc := result.NewDocument(&vector.VectorSet{
		VsID: 1, Algorithm: vector.Algorithm, Mode: vector.ModeKeyGen, Revision: "FIPS203",
		TestGroups: []vector.TestGroup{{TgID: 1}},
	})
	require.NoError(t, doc.Append(0, result.Record{TcID: 1, Fields: map[string]string{"ek": "AA", "dk": "BB"}}))
	require.NoError(t, doc.Append(0, result.Record{TcID: 2, Fields: map[string]string{"ek": "CC", "dk": "DD"}}))

	got, err := compare.CanonicalizeValue(doc)
	require.NoError(t, err)
	require.NoError(t, compare.Documents(got, []byte(produced)))
}
