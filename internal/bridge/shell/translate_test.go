package shell

import "testing"

func TestEncodeValue(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"42", `"42"`},
		{"3", `"3"`},
		{"10..20", `"10", "20"`},
		{"00:00:00:00:01:01", `"00:00:00:00:01:01"`},
		{"10.0.1.0/24", `"10.0.1.0/24"`},
		// Only the exact two-endpoint numeric form is a range.
		{"a..b", `"a..b"`},
		{"1..2..3", `"1..2..3"`},
	}
	for _, c := range cases {
		if got := encodeValue(c.in); got != c.want {
			t.Errorf("encodeValue(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestRenderTableWrite(t *testing.T) {
	got := renderTableWrite(verbAdd, "MyIngress.fwd", "MyIngress.set_egress",
		[]string{`"1"`, `"10.0.0.2"`}, []string{`"3"`})
	want := `p4.MyIngress.fwd.add_with_set_egress("1", "10.0.0.2", "3")`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}

	got = renderTableWrite(verbModify, "MyIngress.fwd", "MyIngress.set_egress", []string{`"1"`}, nil)
	want = `p4.MyIngress.fwd.mod_with_set_egress("1")`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestRenderTableSetDefault(t *testing.T) {
	got := renderTableSetDefault("MyIngress.fwd", "MyIngress.drop", nil)
	if want := "p4.MyIngress.fwd.set_default_with_drop()"; got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestRenderTableDelete(t *testing.T) {
	got := renderTableDelete("MyIngress.fwd", []string{`"1"`, `"2"`})
	if want := `p4.MyIngress.fwd.delete("1", "2")`; got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestRenderTableClear(t *testing.T) {
	if got := renderTableClear("MyIngress.fwd", true); got != "p4.MyIngress.fwd.clear(batch=True)" {
		t.Fatalf("own batch: %s", got)
	}
	if got := renderTableClear("MyIngress.fwd", false); got != "p4.MyIngress.fwd.clear(batch=False)" {
		t.Fatalf("caller batch: %s", got)
	}
}

func TestRenderRegisterSet(t *testing.T) {
	got := renderRegisterSet("MyIngress.cnt", 5, `"7"`)
	want := "p4.MyIngress.cnt.mod(5, \"7\")\np4.MyIngress.cnt.operation_register_sync()"
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}
