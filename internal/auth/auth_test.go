package auth

import "testing"

func TestServiceRestricted(t *testing.T) {
	svc := New([]int64{111, 20, 111})

	if !svc.Restricted() {
		t.Fatalf("list with ids must be restricted")
	}
	if !svc.IsAllowed(111) || !svc.IsAdmin(111) {
		t.Fatalf("listed user not allowed")
	}
	if svc.IsAllowed(222) || svc.IsAdmin(222) {
		t.Fatalf("unexpected allowed")
	}

	lst := svc.List()
	if len(lst) != 2 || lst[0] != 20 || lst[1] != 111 {
		t.Fatalf("unexpected list %v", lst)
	}
}

func TestServiceUnrestricted(t *testing.T) {
	for _, svc := range []*Service{New(nil), nil} {
		if svc.Restricted() {
			t.Fatalf("empty list must not restrict")
		}
		if !svc.IsAllowed(42) {
			t.Fatalf("everyone allowed without a list")
		}
		if svc.IsAdmin(42) {
			t.Fatalf("nobody is admin without a list")
		}
	}
}
