package triple

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genValue() gopter.Gen {
	return gen.OneGenOf(
		gen.AlphaString().Map(func(s string) Value { return NodeValue(NewNodeID("n"+s)) }),
		gen.AnyString().Map(StringValue),
		gen.Int64().Map(IntValue),
		gen.Float64().Map(FloatValue),
		gen.Bool().Map(BoolValue),
	)
}

func genTriple() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString(),
		gen.AlphaString(),
		genValue(),
	).Map(func(vs []any) Triple {
		return New(
			NewNodeID("s"+vs[0].(string)),
			Predicate("p"+vs[1].(string)),
			vs[2].(Value),
		)
	})
}

// Property: Decode(Encode(t)) == t for any valid triple.
func TestCodecRoundtripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("encode/decode roundtrips", prop.ForAll(
		func(tr Triple) bool {
			data, err := Encode(tr)
			if err != nil {
				return false
			}
			got, err := Decode(data)
			if err != nil {
				return false
			}
			return got.Equal(tr)
		},
		genTriple(),
	))

	properties.Property("ID is stable across re-encoding", prop.ForAll(
		func(tr Triple) bool {
			a, err := IDOf(tr)
			if err != nil {
				return false
			}
			b, err := IDOf(tr)
			if err != nil {
				return false
			}
			return a == b
		},
		genTriple(),
	))

	properties.TestingRun(t)
}
