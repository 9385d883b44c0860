// Package mlkemref is a reference IUT for the ACVP client backed by circl's
// ML-KEM. It speaks the same argument and key=value output contract as the
// per-level acvp_mlkem binaries.
package mlkemref

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"
	"github.com/cloudflare/circl/kem/mlkem/mlkem512"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"github.com/lattice-substrate/mlkem-acvp/route"
)

// Field is one line of IUT output.
type Field struct {
	Key   string
	Value []byte
}

// Scheme returns the circl scheme for ps.
func Scheme(ps route.ParameterSet) (kem.Scheme, error) {
	switch ps.Level {
	case 512:
		return mlkem512.Scheme(), nil
	case 768:
		return mlkem768.Scheme(), nil
	case 1024:
		return mlkem1024.Scheme(), nil
	}
	return nil, fmt.Errorf("no scheme for security level %d", ps.Level)
}

// KeyGen derives (ek, dk) from the seeds d and z.
func KeyGen(s kem.Scheme, z, d []byte) (ek, dk []byte, err error) {
	if len(d)+len(z) != s.SeedSize() || len(d) != len(z) {
		return nil, nil, fmt.Errorf("keyGen: seeds d and z must be %d bytes each", s.SeedSize()/2)
	}
	seed := make([]byte, 0, s.SeedSize())
	seed = append(seed, d...)
	seed = append(seed, z...)
	pk, sk := s.DeriveKeyPair(seed)
	if ek, err = pk.MarshalBinary(); err != nil {
		return nil, nil, fmt.Errorf("keyGen: marshal ek: %w", err)
	}
	if dk, err = sk.MarshalBinary(); err != nil {
		return nil, nil, fmt.Errorf("keyGen: marshal dk: %w", err)
	}
	return ek, dk, nil
}

// Encapsulate encapsulates to ek using the randomness m.
func Encapsulate(s kem.Scheme, ek, m []byte) (c, k []byte, err error) {
	if len(m) != s.EncapsulationSeedSize() {
		return nil, nil, fmt.Errorf("encapsulation: m must be %d bytes", s.EncapsulationSeedSize())
	}
	pk, err := s.UnmarshalBinaryPublicKey(ek)
	if err != nil {
		return nil, nil, fmt.Errorf("encapsulation: ek: %w", err)
	}
	c, k, err = s.EncapsulateDeterministically(pk, m)
	if err != nil {
		return nil, nil, fmt.Errorf("encapsulation: %w", err)
	}
	return c, k, nil
}

// Decapsulate recovers the shared secret of c under dk. An invalid c yields
// the implicit rejection secret, not an error.
func Decapsulate(s kem.Scheme, dk, c []byte) ([]byte, error) {
	sk, err := s.UnmarshalBinaryPrivateKey(dk)
	if err != nil {
		return nil, fmt.Errorf("decapsulation: dk: %w", err)
	}
	k, err := s.Decapsulate(sk, c)
	if err != nil {
		return nil, fmt.Errorf("decapsulation: %w", err)
	}
	return k, nil
}

// Execute runs one IUT invocation for ps. args are the positional arguments
// following the executable name, e.g. "keyGen AFT z=.. d=..".
func Execute(ps route.ParameterSet, args []string) ([]Field, error) {
	s, err := Scheme(ps)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: <keyGen|encapDecap> <testType> [function] key=value...")
	}

	switch args[0] {
	case "keyGen":
		in, err := parseInputs(args[2:], "z", "d")
		if err != nil {
			return nil, err
		}
		ek, dk, err := KeyGen(s, in["z"], in["d"])
		if err != nil {
			return nil, err
		}
		return []Field{{"ek", ek}, {"dk", dk}}, nil
	case "encapDecap":
		if len(args) < 3 {
			return nil, fmt.Errorf("encapDecap: missing function")
		}
		switch args[2] {
		case "encapsulation":
			in, err := parseInputs(args[3:], "ek", "m")
			if err != nil {
				return nil, err
			}
			c, k, err := Encapsulate(s, in["ek"], in["m"])
			if err != nil {
				return nil, err
			}
			return []Field{{"c", c}, {"k", k}}, nil
		case "decapsulation":
			in, err := parseInputs(args[3:], "dk", "c")
			if err != nil {
				return nil, err
			}
			k, err := Decapsulate(s, in["dk"], in["c"])
			if err != nil {
				return nil, err
			}
			return []Field{{"k", k}}, nil
		}
		return nil, fmt.Errorf("encapDecap: unknown function %q", args[2])
	}
	return nil, fmt.Errorf("unknown mode %q", args[0])
}

// parseInputs decodes the hex key=value arguments and checks that exactly
// the wanted keys are present.
func parseInputs(args []string, want ...string) (map[string][]byte, error) {
	in := make(map[string][]byte, len(args))
	for _, a := range args {
		key, val, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("argument %q is not key=value", a)
		}
		if _, dup := in[key]; dup {
			return nil, fmt.Errorf("duplicate argument %q", key)
		}
		b, err := hex.DecodeString(val)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", key, err)
		}
		in[key] = b
	}
	for _, k := range want {
		if _, ok := in[k]; !ok {
			return nil, fmt.Errorf("missing argument %s", k)
		}
	}
	if len(in) != len(want) {
		return nil, fmt.Errorf("unexpected arguments, want only %s", strings.Join(want, ", "))
	}
	return in, nil
}

// Format renders fields as the IUT's stdout: one uppercase-hex key=value
// line per field.
func Format(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(strings.ToUpper(hex.EncodeToString(f.Value)))
		b.WriteByte('\n')
	}
	return b.String()
}
