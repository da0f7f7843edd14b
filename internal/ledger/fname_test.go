package ledger

import (
	"encoding/json"
	"testing"
)

func TestFname_JSONRoundTrip(t *testing.T) {
	cases := []Fname{
		Single("a.pkl"),
		Group([]string{"a.pkl", "b.pkl"}),
		Group([]string{"only.pkl"}),
	}

	for _, fn := range cases {
		data, err := json.Marshal(fn)
		if err != nil {
			t.Fatalf("marshal %v: %v", fn, err)
		}

		var got Fname
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}

		if got.IsGroup() != fn.IsGroup() {
			t.Errorf("IsGroup mismatch: got %v want %v", got.IsGroup(), fn.IsGroup())
		}
		if got.Key() != fn.Key() {
			t.Errorf("Key mismatch: got %s want %s", got.Key(), fn.Key())
		}
	}
}

func TestFname_SingleMarshalsAsPlainString(t *testing.T) {
	data, err := json.Marshal(Single("a.pkl"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"a.pkl"` {
		t.Errorf("expected plain string, got %s", data)
	}
}

func TestFname_GroupMarshalsAsArray(t *testing.T) {
	data, err := json.Marshal(Group([]string{"a.pkl", "b.pkl"}))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["a.pkl","b.pkl"]` {
		t.Errorf("expected array, got %s", data)
	}
}

func TestFname_KeyDistinguishesSingleFromGroup(t *testing.T) {
	single := Single("a.pkl")
	group := Group([]string{"a.pkl"})
	if single.Key() == group.Key() {
		t.Error("Single and Group of the same path must not collide")
	}
}
