package sim

import (
	"strings"
)

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a dot-separated path of elements, such as "Cache" or
// "L2[1].Bank[0]".
//  1. Elements must not be empty.
//  2. Elements start with a capital letter and must not contain
//     underscores, dashes or quotes.
//  3. Elements in a series are indexed with square brackets holding
//     decimal integers.
func NameMustBeValid(name string) {
	defer func() {
		if r := recover(); r != nil {
			panic("Name " + name + " is not valid: " + r.(string))
		}
	}()

	for _, elem := range strings.Split(name, ".") {
		elemMustBeValid(elem)
	}
}

func elemMustBeValid(elem string) {
	base, indices, _ := strings.Cut(elem, "[")
	if base == "" {
		panic("Name element must not be empty")
	}

	if strings.ContainsAny(base, "_-\"']") {
		panic("Name element must not contain _, -, quotes or brackets")
	}

	if base[0] < 'A' || base[0] > 'Z' {
		panic("Name element must start with a capital letter")
	}

	if indices != "" {
		indicesMustBeValid("[" + indices)
	}
}

func indicesMustBeValid(s string) {
	for s != "" {
		if s[0] != '[' {
			panic("Name bracket must match")
		}

		end := strings.IndexByte(s, ']')
		if end < 0 {
			panic("Name bracket must match")
		}

		index := s[1:end]
		if index == "" || strings.Trim(index, "0123456789") != "" {
			panic("Name index must be integer")
		}

		s = s[end+1:]
	}
}
