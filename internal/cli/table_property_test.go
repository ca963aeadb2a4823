package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Rendered tables must align: every line has the same visible width no
// matter what the cells contain, including embedded color codes.
func TestProperty_TableAlignment(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	properties.Property("all lines share one visible width", prop.ForAll(
		func(rows [][]string) bool {
			buf := &bytes.Buffer{}
			out := &Output{writer: buf, colorEnabled: true}

			table := NewTable(out, "ID", "VALUE", "NOTE")
			for i, row := range rows {
				cells := make([]string, 3)
				copy(cells, row)
				// Color some cells so padding must ignore escape codes.
				if i%2 == 0 {
					cells[0] = out.Green(cells[0])
				} else {
					cells[2] = out.Red(cells[2])
				}
				table.AddRow(cells...)
			}
			table.Render()

			lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			if len(lines) != len(rows)+2 {
				return false
			}
			want := len(stripANSI(lines[0]))
			for _, line := range lines {
				if len(stripANSI(line)) != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.SliceOfN(3, gen.AlphaString())),
	))

	properties.TestingRun(t)
}
