package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/domain"
)

type memStore map[string]bool

func (s memStore) CodeExists(_ context.Context, code string) (bool, error) { return s[code], nil }

func (s memStore) CodesWithPrefix(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for c := range s {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out, nil
}

// seq 依次返回给定的随机数，用完后重复最后一个
func seq(ns ...int) func(int) int {
	i := 0
	return func(int) int {
		n := ns[min(i, len(ns)-1)]
		i++
		return n
	}
}

var codeRE = regexp.MustCompile(`^AJEU2024KA\d{3}$`)

func TestAllocateKoffiAya2024(t *testing.T) {
	a := NewCodeAllocator("AJEU", 25)
	ini, err := Initials("Koffi", "Aya")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		code, err := a.Allocate(context.Background(), memStore{}, 2024, ini)
		if err != nil {
			t.Fatal(err)
		}
		if !codeRE.MatchString(code) {
			t.Fatalf("code %q does not match format", code)
		}
		if code[8:10] != "KA" {
			t.Fatalf("initials slice = %q", code[8:10])
		}
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		surname, given, want string
		wantErr            bool
	}{
		{"Koffi", "Aya", "KA", false},
		{"  brou ", "yao eric", "BY", false},
		{"Émile", "Ørsted", "", true},
		{"Éboué", "ange", "EA", false},
		{"", "Aya", "", true},
		{"1Koffi", "Aya", "", true},
		{"\u0301", "Aya", "", true},
		{"Koffi", " \u0301\u0308 ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.surname+"/"+tt.given, func(t *testing.T) {
			got, err := Initials(tt.surname, tt.given)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllocateSkipsTakenCodes(t *testing.T) {
	a := NewCodeAllocator("AJEU", 5)
	a.IntN = seq(7, 7, 8)
	store := memStore{"AJEU2024KA007": true}
	code, err := a.Allocate(context.Background(), store, 2024, "KA")
	if err != nil {
		t.Fatal(err)
	}
	if code != "AJEU2024KA008" {
		t.Fatalf("code = %q", code)
	}
}

func TestAllocateFallsBackToScan(t *testing.T) {
	a := NewCodeAllocator("AJEU", 3)
	a.IntN = seq(0)
	store := memStore{}
	for i := 0; i < 999; i++ {
		store[fmt.Sprintf("AJEU2024KA%03d", i)] = true
	}
	code, err := a.Allocate(context.Background(), store, 2024, "KA")
	if err != nil {
		t.Fatal(err)
	}
	if code != "AJEU2024KA999" {
		t.Fatalf("code = %q", code)
	}
}

func TestAllocateExhausted(t *testing.T) {
	a := NewCodeAllocator("AJEU", 3)
	store := memStore{}
	for i := 0; i < 1000; i++ {
		store[fmt.Sprintf("AJEU2024KA%03d", i)] = true
	}
	_, err := a.Allocate(context.Background(), store, 2024, "KA")
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("err = %v", err)
	}
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("kind = %v", apperr.KindOf(err))
	}
}

func TestAllocateRejectsBadYear(t *testing.T) {
	a := NewCodeAllocator("AJEU", 3)
	if _, err := a.Allocate(context.Background(), memStore{}, 24, "KA"); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("err = %v", err)
	}
}

func TestReconcileNewInitialsKeepYear(t *testing.T) {
	a := NewCodeAllocator("AJEU", 25)
	m := &domain.Matricule{Code: "AJEU2019BY123", Surname: "BROU", GivenName: "YAO", EnrollmentYear: 2019}
	changed, err := a.Reconcile(context.Background(), memStore{m.Code: true}, m, "Koffi", "Aya", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("code should change")
	}
	if !regexp.MustCompile(`^AJEU2019KA\d{3}$`).MatchString(m.Code) {
		t.Fatalf("code = %q", m.Code)
	}
	if m.Surname != "Koffi" || m.GivenName != "Aya" {
		t.Fatalf("names = %q %q", m.Surname, m.GivenName)
	}
}

func TestReconcileSameInitialsKeepsCode(t *testing.T) {
	a := NewCodeAllocator("AJEU", 25)
	m := &domain.Matricule{Code: "AJEU2019BY123", Surname: "BROU", GivenName: "YAO", EnrollmentYear: 2019}
	changed, err := a.Reconcile(context.Background(), memStore{}, m, "Bamba", "Yves", 0)
	if err != nil {
		t.Fatal(err)
	}
	if changed || m.Code != "AJEU2019BY123" {
		t.Fatalf("changed = %v, code = %q", changed, m.Code)
	}
	if m.Surname != "Bamba" {
		t.Fatalf("surname = %q", m.Surname)
	}
}

func TestReconcileYearChange(t *testing.T) {
	a := NewCodeAllocator("AJEU", 25)
	m := &domain.Matricule{Code: "AJEU2019BY123", Surname: "BROU", GivenName: "YAO", EnrollmentYear: 2019}
	changed, err := a.Reconcile(context.Background(), memStore{}, m, "BROU", "YAO", 2021)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || !strings.HasPrefix(m.Code, "AJEU2021BY") {
		t.Fatalf("changed = %v, code = %q", changed, m.Code)
	}
}
