package random

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Fuzzer produces bounded pseudo-random values from its own deterministic
// generator. It never shares state with the harness generator, so fuzz
// draws cannot perturb scenario selection.
type Fuzzer struct {
	gen      *Generator
	maxDepth int
}

// NewFuzzer returns a fuzzer seeded independently from any harness
// generator. A non-positive maxDepth falls back to 3.
func NewFuzzer(seed int64, maxDepth int) *Fuzzer {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return &Fuzzer{
		gen:      NewGenerator(seed),
		maxDepth: maxDepth,
	}
}

// Reset reseeds the underlying generator.
func (f *Fuzzer) Reset(seed int64) {
	f.gen.Reset(seed)
}

// MaxDepth returns the recursion budget for generated objects and arrays.
func (f *Fuzzer) MaxDepth() int {
	return f.maxDepth
}

// String returns an alphanumeric string with a length in [minLen,maxLen].
func (f *Fuzzer) String(minLen, maxLen int) string {
	if minLen < 0 {
		minLen = 0
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen + f.gen.NextInt(maxLen-minLen+1)
	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumeric[f.gen.NextInt(len(alphanumeric))]
	}
	return string(b)
}

// Number returns a float in [min,max).
func (f *Fuzzer) Number(min, max float64) float64 {
	return f.gen.NextInRange(min, max)
}

// Bool returns a uniformly drawn boolean.
func (f *Fuzzer) Bool() bool {
	return f.gen.NextBool()
}

// Pick returns a uniformly chosen element, or nil for an empty set.
func (f *Fuzzer) Pick(choices []interface{}) interface{} {
	if len(choices) == 0 {
		return nil
	}
	return choices[f.gen.NextInt(len(choices))]
}

// PickString returns a uniformly chosen string, or "" for an empty set.
func (f *Fuzzer) PickString(choices []string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[f.gen.NextInt(len(choices))]
}

// Value generates a random JSON-compatible value. Composite values recurse
// with a reduced depth budget; once the budget is exhausted only short
// string leaves are produced.
func (f *Fuzzer) Value(depth int) interface{} {
	if depth <= 0 {
		return f.String(1, 8)
	}
	switch f.gen.NextInt(6) {
	case 0:
		return f.String(0, 20)
	case 1:
		return f.Number(-1000, 1000)
	case 2:
		return f.Bool()
	case 3:
		return nil
	case 4:
		return f.Object(depth-1, 5)
	default:
		return f.Array(depth-1, 5)
	}
}

// Object generates a map with up to maxKeys entries, values drawn via Value.
func (f *Fuzzer) Object(depth, maxKeys int) map[string]interface{} {
	obj := map[string]interface{}{}
	count := f.gen.NextInt(maxKeys + 1)
	for i := 0; i < count; i++ {
		obj[f.String(3, 10)] = f.Value(depth)
	}
	return obj
}

// Array generates a slice with up to maxElements entries, values drawn via Value.
func (f *Fuzzer) Array(depth, maxElements int) []interface{} {
	count := f.gen.NextInt(maxElements + 1)
	arr := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		arr = append(arr, f.Value(depth))
	}
	return arr
}
