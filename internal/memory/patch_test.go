package memory

import (
	"reflect"
	"testing"
)

func TestApply_RemoveExactMatch(t *testing.T) {
	lines := []string{"a", "b", "c"}

	out, res := Apply(lines, EditRequest{Remove: []RemoveOp{{LineStart: 2, ExactText: "b"}}})
	if !reflect.DeepEqual(out, []string{"a", "c"}) {
		t.Errorf("got %v", out)
	}
	if res.Removed != 1 {
		t.Errorf("removed = %d, want 1", res.Removed)
	}
}

func TestApply_RemoveMismatchIsNoOp(t *testing.T) {
	lines := []string{"a", "b", "c"}

	out, res := Apply(lines, EditRequest{Remove: []RemoveOp{{LineStart: 2, ExactText: "X"}}})
	if !reflect.DeepEqual(out, []string{"a", "b", "c"}) {
		t.Errorf("got %v", out)
	}
	if res.Removed != 0 {
		t.Errorf("removed = %d, want 0", res.Removed)
	}
}

func TestApply_RemoveOutOfBoundsIsNoOp(t *testing.T) {
	lines := []string{"a"}
	for _, op := range []RemoveOp{
		{LineStart: 0, ExactText: "a"},
		{LineStart: -3, ExactText: "a"},
		{LineStart: 2, ExactText: "a"},
		{LineStart: 1, ExactText: "a\nb"},
	} {
		out, res := Apply(lines, EditRequest{Remove: []RemoveOp{op}})
		if !reflect.DeepEqual(out, []string{"a"}) || res.Removed != 0 {
			t.Errorf("op %+v: got %v removed=%d", op, out, res.Removed)
		}
	}
}

func TestApply_RemoveMultiLineWithTrailingNewline(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}

	out, res := Apply(lines, EditRequest{Remove: []RemoveOp{{LineStart: 2, ExactText: "b\nc\n"}}})
	if !reflect.DeepEqual(out, []string{"a", "d"}) {
		t.Errorf("got %v", out)
	}
	if res.Removed != 2 {
		t.Errorf("removed = %d, want 2", res.Removed)
	}
}

func TestApply_RemoveOrderInvariance(t *testing.T) {
	lines := []string{"a", "b", "c"}
	fwd := EditRequest{Remove: []RemoveOp{
		{LineStart: 1, ExactText: "a"},
		{LineStart: 3, ExactText: "c"},
	}}
	rev := EditRequest{Remove: []RemoveOp{
		{LineStart: 3, ExactText: "c"},
		{LineStart: 1, ExactText: "a"},
	}}

	outFwd, resFwd := Apply(lines, fwd)
	outRev, resRev := Apply(lines, rev)

	if !reflect.DeepEqual(outFwd, outRev) {
		t.Errorf("order dependent: %v vs %v", outFwd, outRev)
	}
	if !reflect.DeepEqual(outFwd, []string{"b"}) {
		t.Errorf("got %v, want [b]", outFwd)
	}
	if resFwd.Removed != 2 || resRev.Removed != 2 {
		t.Errorf("removed = %d/%d, want 2", resFwd.Removed, resRev.Removed)
	}
}

func TestApply_AddDedupWithinRequest(t *testing.T) {
	out, res := Apply(nil, EditRequest{Add: []string{"x", "x"}})
	if !reflect.DeepEqual(out, []string{"x"}) {
		t.Errorf("got %v", out)
	}
	if res.Added != 1 {
		t.Errorf("added = %d, want 1", res.Added)
	}
}

func TestApply_AddSkipsExistingAndBlank(t *testing.T) {
	out, res := Apply([]string{"x"}, EditRequest{Add: []string{"x", "  ", "", "y "}})
	if !reflect.DeepEqual(out, []string{"x", "y"}) {
		t.Errorf("got %v", out)
	}
	if res.Added != 1 {
		t.Errorf("added = %d, want 1", res.Added)
	}
}

func TestApply_GlobalDedupPass(t *testing.T) {
	out, res := Apply([]string{"a", "b", "a", "c", "b"}, EditRequest{})
	if !reflect.DeepEqual(out, []string{"a", "b", "c"}) {
		t.Errorf("got %v", out)
	}
	if res.Deduped != 2 {
		t.Errorf("deduped = %d, want 2", res.Deduped)
	}
}

func TestApply_IdempotentReapplication(t *testing.T) {
	req := EditRequest{
		Remove: []RemoveOp{{LineStart: 1, ExactText: "old fact"}},
		Add:    []string{"new fact"},
	}

	once, resOnce := Apply([]string{"old fact", "kept"}, req)
	if !reflect.DeepEqual(once, []string{"kept", "new fact"}) {
		t.Fatalf("first application: %v", once)
	}
	if resOnce.Removed != 1 || resOnce.Added != 1 {
		t.Fatalf("first application counts: %+v", resOnce)
	}

	twice, resTwice := Apply(once, req)
	if !reflect.DeepEqual(twice, once) {
		t.Errorf("second application changed the list: %v", twice)
	}
	if resTwice.Removed != 0 || resTwice.Added != 0 || resTwice.Deduped != 0 {
		t.Errorf("second application counts: %+v", resTwice)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	lines := []string{"a", "b", "c"}
	Apply(lines, EditRequest{
		Remove: []RemoveOp{{LineStart: 1, ExactText: "a"}},
		Add:    []string{"d"},
	})
	if !reflect.DeepEqual(lines, []string{"a", "b", "c"}) {
		t.Errorf("input mutated: %v", lines)
	}
}
