package filter

import (
	"reflect"
	"testing"
)

func TestFromTags_SortedAndSkipsEmpty(t *testing.T) {
	e := FromTags(map[string]string{
		"source":   "manual",
		"category": "excel",
		"language": "",
	})

	var keys []string
	for _, c := range e.Must() {
		keys = append(keys, c.Key())
	}
	if !reflect.DeepEqual(keys, []string{"category", "source"}) {
		t.Errorf("keys: %v", keys)
	}
}

func TestFromTags_EmptyInput(t *testing.T) {
	if e := FromTags(nil); !e.IsEmpty() {
		t.Error("expected empty expression")
	}
}

func TestWithMatch_DoesNotMutateOriginal(t *testing.T) {
	base := FromTags(map[string]string{"source": "manual"})
	scoped := base.WithMatch("content_type", "excel_knowledge")

	if len(base.Must()) != 1 {
		t.Errorf("base mutated: %d conditions", len(base.Must()))
	}
	if len(scoped.Must()) != 2 {
		t.Errorf("scoped: %d conditions", len(scoped.Must()))
	}
}

func TestWithMatch_IgnoresEmptyKeyOrValue(t *testing.T) {
	base := Expression{}
	if !base.WithMatch("", "v").IsEmpty() || !base.WithMatch("k", "").IsEmpty() {
		t.Error("empty key or value must be a no-op")
	}
}

func TestNewExpression_ConditionLimit(t *testing.T) {
	many := make([]Condition, MaxConditions+1)
	if _, err := NewExpression(many, nil); err == nil {
		t.Error("expected error for too many conditions")
	}
	if _, err := NewExpression(many[:MaxConditions], nil); err != nil {
		t.Errorf("unexpected error at the limit: %v", err)
	}
}

func TestCondition_Kinds(t *testing.T) {
	m, err := NewMatch("source", "manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsMatch() || m.IsRange() {
		t.Error("match condition misclassified")
	}

	r, err := NewRange("created_at", Before(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.IsRange() || r.IsMatch() {
		t.Error("range condition misclassified")
	}
	if r.Range().LT() == nil || *r.Range().LT() != 100 {
		t.Errorf("range bound: %+v", r.Range())
	}
}
