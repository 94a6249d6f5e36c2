package random

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func measureDepth(v interface{}) int {
	switch val := v.(type) {
	case map[string]interface{}:
		deepest := 0
		for _, child := range val {
			if d := measureDepth(child); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case []interface{}:
		deepest := 0
		for _, child := range val {
			if d := measureDepth(child); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	default:
		return 0
	}
}

func TestFuzzerDeterminism(t *testing.T) {
	a := NewFuzzer(4242, 3)
	b := NewFuzzer(4242, 3)

	for i := 0; i < 20; i++ {
		av := a.Value(3)
		bv := b.Value(3)
		if !reflect.DeepEqual(av, bv) {
			t.Fatalf("value %d diverged: %#v != %#v", i, av, bv)
		}
	}
}

func TestFuzzerStringBounds(t *testing.T) {
	f := NewFuzzer(1, 3)

	for i := 0; i < 200; i++ {
		s := f.String(2, 12)
		if len(s) < 2 || len(s) > 12 {
			t.Fatalf("String(2,12) length %d out of bounds", len(s))
		}
		for _, ch := range s {
			if !strings.ContainsRune(alphanumeric, ch) {
				t.Fatalf("String produced non-alphanumeric char %q", ch)
			}
		}
	}
}

func TestFuzzerStringDegenerateBounds(t *testing.T) {
	f := NewFuzzer(1, 3)

	if s := f.String(-3, -1); s != "" {
		t.Errorf("String(-3,-1) = %q; want empty", s)
	}
	if s := f.String(5, 2); len(s) != 5 {
		t.Errorf("String(5,2) length %d; want 5", len(s))
	}
}

func TestFuzzerNumberBounds(t *testing.T) {
	f := NewFuzzer(8, 3)

	for i := 0; i < 200; i++ {
		n := f.Number(-50, 50)
		if n < -50 || n >= 50 {
			t.Fatalf("Number(-50,50) = %v out of bounds", n)
		}
	}
}

func TestFuzzerPick(t *testing.T) {
	f := NewFuzzer(3, 3)

	choices := []interface{}{"a", 1.5, true}
	for i := 0; i < 50; i++ {
		v := f.Pick(choices)
		found := false
		for _, c := range choices {
			if reflect.DeepEqual(v, c) {
				found = true
			}
		}
		if !found {
			t.Fatalf("Pick returned %#v, not among choices", v)
		}
	}

	if v := f.Pick(nil); v != nil {
		t.Errorf("Pick(nil) = %#v; want nil", v)
	}
	if v := f.PickString(nil); v != "" {
		t.Errorf("PickString(nil) = %q; want empty", v)
	}
}

func TestFuzzerValueDepthBudget(t *testing.T) {
	f := NewFuzzer(1234, 3)

	for i := 0; i < 100; i++ {
		v := f.Value(3)
		if d := measureDepth(v); d > 3 {
			t.Fatalf("Value(3) produced depth %d", d)
		}
	}

	// exhausted budget always yields a short string leaf
	for i := 0; i < 20; i++ {
		v := f.Value(0)
		s, ok := v.(string)
		if !ok {
			t.Fatalf("Value(0) = %#v; want string leaf", v)
		}
		if len(s) < 1 || len(s) > 8 {
			t.Fatalf("Value(0) leaf length %d out of [1,8]", len(s))
		}
	}
}

func TestFuzzerValueIsJSONCompatible(t *testing.T) {
	f := NewFuzzer(555, 4)

	for i := 0; i < 50; i++ {
		if _, err := json.Marshal(f.Value(4)); err != nil {
			t.Fatalf("Value produced unmarshalable output: %v", err)
		}
	}
}

func TestFuzzerDefaultDepth(t *testing.T) {
	f := NewFuzzer(1, 0)
	if f.MaxDepth() != 3 {
		t.Errorf("MaxDepth() = %d; want 3 fallback", f.MaxDepth())
	}
}

func FuzzFuzzerStringBounds(f *testing.F) {
	f.Add(int64(12345), uint8(2), uint8(10))

	f.Fuzz(func(t *testing.T, seed int64, minLen, maxLen uint8) {
		fz := NewFuzzer(seed, 3)
		s := fz.String(int(minLen), int(maxLen))

		lower, upper := int(minLen), int(maxLen)
		if upper < lower {
			upper = lower
		}
		if len(s) < lower || len(s) > upper {
			t.Errorf("String(%d,%d) length %d out of bounds", minLen, maxLen, len(s))
		}
	})
}

func FuzzFuzzerValueDepth(f *testing.F) {
	f.Add(int64(1), uint8(3))

	f.Fuzz(func(t *testing.T, seed int64, depth uint8) {
		if depth > 6 {
			depth = depth % 7
		}
		fz := NewFuzzer(seed, int(depth))
		v := fz.Value(int(depth))
		if d := measureDepth(v); d > int(depth) {
			t.Errorf("Value(%d) produced depth %d", depth, d)
		}
	})
}
