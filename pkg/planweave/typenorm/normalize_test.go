package typenorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormalize covers the cosmetic rewrites one by one.
func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"plain primitive", "int", "int"},
		{"whitespace stripped", " { id : int , name : string } ", "{id:int,name:string}"},
		{"semicolon separator", "{id:int;name:string}", "{id:int,name:string}"},
		{"array spelling", "Array<int>", "int[]"},
		{"list spelling", "List<string>", "string[]"},
		{"lowercase container keyword", "array<int>", "int[]"},
		{"nested containers", "Array<Array<int>>", "int[][]"},
		{"container in object", "{ids: Array<int>}", "{ids:int[]}"},
		{"trailing comma", "{id: int,}", "{id:int}"},
		{"trailing comma in array", "[int,]", "[int]"},
		{"primitive casing", "String", "string"},
		{"integer alias", "Integer", "int"},
		{"bool alias", "Bool", "boolean"},
		{"field named like primitive", "{string: Int}", "{string:int}"},
		{"unbalanced angle left alone", "Array<int", "Array<int"},
		{"identifier containing keyword", "MyArray<int>", "MyArray<int>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

// TestEqual treats cosmetic differences as equal and semantic ones as
// distinct.
func TestEqual(t *testing.T) {
	testCases := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"identical", "{id: int}", "{id: int}", true},
		{"whitespace", "{id: int, name: string}", "{id:int,name:string}", true},
		{"separator choice", "{id:int;name:string}", "{id:int,name:string}", true},
		{"container spelling", "Array<int>", "int[]", true},
		{"trailing separator", "{id: int,}", "{id: int}", true},
		{"primitive casing", "String[]", "string[]", true},
		{"field order is semantic", "{a: int, b: int}", "{b: int, a: int}", false},
		{"field names are semantic", "{id: int}", "{key: int}", false},
		{"element type differs", "int[]", "string[]", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.equal, Equal(tc.a, tc.b))
		})
	}
}
