package sui

import (
	"encoding/hex"
	"strings"

	"github.com/sui-tools/vanity-miner/internal/minerr"
)

// ParseAddress decodes a 0x-prefixed (or bare) hex string into an Address,
// left-padding with zeros the way Sui's own address parser does — a
// caller may write "0x2" instead of the full 64 hex digits.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, minerr.New(minerr.InvalidInput, "invalid address hex %q: %v", s, err)
	}
	if len(raw) > len(a) {
		return a, minerr.New(minerr.InvalidInput, "address %q longer than 32 bytes", s)
	}
	copy(a[len(a)-len(raw):], raw)
	return a, nil
}

// ParseTypeTag parses Move's textual type-tag syntax: primitive names
// (bool, u8, u16, u32, u64, u128, u256, address, signer), vector<T>, and
// struct tags of the form 0xADDR::module::Name or 0xADDR::module::Name<T,
// U, ...>. It's the inverse of what a real Sui client would print for a
// GenericCall's type_args.
func ParseTypeTag(s string) (TypeTag, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "bool":
		return TypeTag{Kind: TypeBool}, nil
	case "u8":
		return TypeTag{Kind: TypeU8}, nil
	case "u16":
		return TypeTag{Kind: TypeU16}, nil
	case "u32":
		return TypeTag{Kind: TypeU32}, nil
	case "u64":
		return TypeTag{Kind: TypeU64}, nil
	case "u128":
		return TypeTag{Kind: TypeU128}, nil
	case "u256":
		return TypeTag{Kind: TypeU256}, nil
	case "address":
		return TypeTag{Kind: TypeAddress}, nil
	case "signer":
		return TypeTag{Kind: TypeSigner}, nil
	}

	if strings.HasPrefix(s, "vector<") && strings.HasSuffix(s, ">") {
		inner := s[len("vector<") : len(s)-1]
		elem, err := ParseTypeTag(inner)
		if err != nil {
			return TypeTag{}, err
		}
		return TypeTag{Kind: TypeVector, Elem: &elem}, nil
	}

	if strings.Contains(s, "::") {
		return parseStructTag(s)
	}

	return TypeTag{}, minerr.New(minerr.InvalidInput, "unrecognized type tag %q", s)
}

func parseStructTag(s string) (TypeTag, error) {
	body := s
	var typeParamsStr string
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if !strings.HasSuffix(s, ">") {
			return TypeTag{}, minerr.New(minerr.InvalidInput, "unterminated type parameters in %q", s)
		}
		body = s[:i]
		typeParamsStr = s[i+1 : len(s)-1]
	}

	parts := strings.SplitN(body, "::", 3)
	if len(parts) != 3 {
		return TypeTag{}, minerr.New(minerr.InvalidInput, "malformed struct tag %q, expected addr::module::Name", s)
	}

	addr, err := ParseAddress(parts[0])
	if err != nil {
		return TypeTag{}, err
	}

	st := &StructTag{Address: addr, Module: parts[1], Name: parts[2]}
	if typeParamsStr != "" {
		for _, p := range splitTypeParams(typeParamsStr) {
			param, err := ParseTypeTag(p)
			if err != nil {
				return TypeTag{}, err
			}
			st.TypeParams = append(st.TypeParams, param)
		}
	}

	return TypeTag{Kind: TypeStruct, Struct: st}, nil
}

// splitTypeParams splits a comma-separated list of type tags at the top
// level only, respecting nested angle brackets (vector<vector<u8>>, ...).
func splitTypeParams(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}
