package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"ajeu-backend/internal/core/cache"
)

// 接 redis 的 fixture：所有写路径共用同一个 cache
func newCachedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0, time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	log := zap.NewNop()
	codes := NewCodeAllocator("AJEU", 25)
	f.auth = NewAuthService(f.db, f.jwt, codes, c, 30*24*time.Hour, log)
	f.mats = NewMatriculeService(f.db, codes, c, log)
	f.members = NewMemberService(f.db, codes, c, nil, "http://api.test/", log)
	f.admin = NewAdminService(f.db, codes, c, log)
	return f
}

func TestRegisterRefreshesCachedMembers(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	mat := f.matricule(t, "Koffi", "Aya", 2024)

	before, err := f.members.Members(ctx, MembersQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(before.Data) != 1 || before.Data[0].Code != mat.Matricule.Code {
		t.Fatalf("warm listing = %+v", before.Data)
	}

	reg := f.register(t, mat.Matricule.Code, "Bintou", "Zadi", "bintou@example.com")
	if *reg.User.Matricule == mat.Matricule.Code {
		t.Fatalf("code kept despite new initials: %s", mat.Matricule.Code)
	}

	after, err := f.members.Members(ctx, MembersQuery{})
	if err != nil {
		t.Fatal(err)
	}
	got := after.Data[0]
	if got.Code != *reg.User.Matricule || got.Nom != "Zadi" || got.Email != "bintou@example.com" {
		t.Fatalf("stale listing after register: code=%s nom=%s email=%q", got.Code, got.Nom, got.Email)
	}
}

func TestMatriculeUpdateRefreshesCachedMembers(t *testing.T) {
	f := newCachedFixture(t)
	ctx := context.Background()
	mat := f.matricule(t, "Koffi", "Aya", 2024)
	if _, err := f.members.Members(ctx, MembersQuery{}); err != nil {
		t.Fatal(err)
	}

	nom := "Zadi"
	if _, err := f.mats.Update(ctx, mat.Matricule.ID, UpdateMatriculeInput{Nom: &nom}); err != nil {
		t.Fatal(err)
	}
	after, err := f.members.Members(ctx, MembersQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if after.Data[0].Nom != "Zadi" || after.Data[0].Code == mat.Matricule.Code {
		t.Fatalf("stale listing after update: %+v", after.Data[0].MatriculeView)
	}
}
