package querysql

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treestore/internal/querylang"
	"github.com/roach88/treestore/internal/queryir"
)

// goldenPredicates is the fixed predicate set rendered for every dialect.
var goldenPredicates = []struct {
	name string
	pred queryir.Predicate
}{
	{"meta", querylang.MustParse("name = 'report' and parent = '/docs/'")},
	{"number", querylang.MustParse("data.size >= 10")},
	{"nested like", querylang.MustParse("data.owner.name ~ 'a%'")},
	{"bool", querylang.MustParse("data.active = true")},
	{"null", querylang.MustParse("data.deleted_at = null or data.archived != null")},
	{"in", querylang.MustParse("name in ('a', 'b') and not data.kind in ('x', 2)")},
	{"scoped", queryir.Conj(queryir.Under{Prefix: "/docs/"}, querylang.MustParse("data.size < 2.5"))},
	{"ancestry", queryir.And{Predicates: []queryir.Predicate{
		queryir.AncestorOf{Path: "/docs/a/b/"},
		queryir.Under{Prefix: "/docs/"},
	}}},
}

func TestCompile_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			d, err := Lookup(name)
			require.NoError(t, err)
			c := NewCompiler(d)

			var buf bytes.Buffer
			for _, tc := range goldenPredicates {
				frag, err := c.Compile(tc.pred)
				require.NoError(t, err, tc.name)
				fmt.Fprintf(&buf, "-- %s\n%s\n%s\n\n", tc.name, frag.SQL, frag.Params)
			}
			g.Assert(t, "compile_"+name, buf.Bytes())
		})
	}
}
