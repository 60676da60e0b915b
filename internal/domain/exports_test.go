package domain_test

import (
	"testing"

	"sml/internal/domain"
)

func TestHandleConstructors(t *testing.T) {
	s1, s2 := domain.NewSessionID(), domain.NewSessionID()
	if s1 == "" || s1 == s2 {
		t.Fatalf("session ids not fresh: %q %q", s1, s2)
	}
	g1, g2 := domain.NewGroupID(), domain.NewGroupID()
	if g1 == "" || g1 == g2 {
		t.Fatalf("group ids not fresh: %q %q", g1, g2)
	}
	m1, m2 := domain.NewMemberID(), domain.NewMemberID()
	if m1 == "" || m1 == m2 {
		t.Fatalf("member ids not fresh: %q %q", m1, m2)
	}
}
