package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/domain"
)

// 后缀空间 000-999
const suffixSpace = 1000

var ErrCodeSpaceExhausted = errors.New("membership code space exhausted")

var (
	codeAllocTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "member_code_allocations_total", Help: "Membership codes allocated, by strategy"},
		[]string{"strategy"},
	)
	codeCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "member_code_collisions_total", Help: "Random code candidates already taken"},
	)
)

func init() { prometheus.MustRegister(codeAllocTotal, codeCollisions) }

// CodeStore 分配器只需要这两个查询；MatriculeRepo 实现它
type CodeStore interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	CodesWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// CodeAllocator 生成 <Prefix><year:4><initials:2><nnn>
type CodeAllocator struct {
	Prefix      string
	MaxAttempts int
	IntN        func(n int) int
}

func NewCodeAllocator(prefix string, maxAttempts int) *CodeAllocator {
	if prefix == "" {
		prefix = "AJEU"
	}
	if maxAttempts <= 0 {
		maxAttempts = 25
	}
	return &CodeAllocator{Prefix: prefix, MaxAttempts: maxAttempts, IntN: rand.IntN}
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func initial(name string) (byte, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperr.BadRequest("name must not be blank")
	}
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		return 0, apperr.BadRequest("invalid name")
	}
	// 只剩组合符号的名字去重音后为空
	folded = strings.TrimSpace(folded)
	if folded == "" {
		return 0, apperr.BadRequest(fmt.Sprintf("name %q must start with a latin letter", name))
	}
	r := []rune(strings.ToUpper(folded))[0]
	if r < 'A' || r > 'Z' {
		return 0, apperr.BadRequest(fmt.Sprintf("name %q must start with a latin letter", name))
	}
	return byte(r), nil
}

// Initials 姓首字母 + 名首字母，去掉重音后大写（"Émile" -> 'E'）
func Initials(surname, givenName string) (string, error) {
	s, err := initial(surname)
	if err != nil {
		return "", err
	}
	g, err := initial(givenName)
	if err != nil {
		return "", err
	}
	return string([]byte{s, g}), nil
}

func (a *CodeAllocator) prefixFor(year int, initials string) string {
	return fmt.Sprintf("%s%04d%s", a.Prefix, year, initials)
}

// Parse 拆出 code 里的年份与首字母；格式不符时 ok=false
func (a *CodeAllocator) Parse(code string) (year string, initials string, ok bool) {
	p := len(a.Prefix)
	if len(code) != p+4+2+3 || !strings.HasPrefix(code, a.Prefix) {
		return "", "", false
	}
	return code[p : p+4], code[p+4 : p+6], true
}

// Allocate 先随机尝试 MaxAttempts 次，之后扫描该前缀已用后缀取第一个空位；
// 1000 个全部占用时返回 ErrCodeSpaceExhausted
func (a *CodeAllocator) Allocate(ctx context.Context, store CodeStore, year int, initials string) (string, error) {
	if year < 1000 || year > 9999 {
		return "", apperr.BadRequest(fmt.Sprintf("invalid enrollment year %d", year))
	}
	if len(initials) != 2 {
		return "", apperr.BadRequest("initials must be two letters")
	}
	prefix := a.prefixFor(year, initials)

	for i := 0; i < a.MaxAttempts; i++ {
		code := fmt.Sprintf("%s%03d", prefix, a.IntN(suffixSpace))
		taken, err := store.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			codeAllocTotal.WithLabelValues("random").Inc()
			return code, nil
		}
		codeCollisions.Inc()
	}

	used, err := store.CodesWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(used))
	for _, c := range used {
		taken[c] = struct{}{}
	}
	// 从随机位置开始扫，避免总是落在低位
	start := a.IntN(suffixSpace)
	for i := 0; i < suffixSpace; i++ {
		code := fmt.Sprintf("%s%03d", prefix, (start+i)%suffixSpace)
		if _, ok := taken[code]; !ok {
			codeAllocTotal.WithLabelValues("scan").Inc()
			return code, nil
		}
	}
	codeAllocTotal.WithLabelValues("exhausted").Inc()
	return "", apperr.Unavailable("no membership code left for "+prefix, ErrCodeSpaceExhausted)
}

// Reconcile 写入新姓名；首字母或年份（year>0 且不同）变化时重新分配 code。
// 返回 code 是否改变
func (a *CodeAllocator) Reconcile(ctx context.Context, store CodeStore, m *domain.Matricule, surname, givenName string, year int) (bool, error) {
	want, err := Initials(surname, givenName)
	if err != nil {
		return false, err
	}
	codeYear, have, ok := a.Parse(m.Code)
	keepYear := m.EnrollmentYear
	if ok {
		if y, err := strconv.Atoi(codeYear); err == nil {
			keepYear = y
		}
	}
	if year <= 0 {
		year = keepYear
	}

	m.Surname = strings.TrimSpace(surname)
	m.GivenName = strings.TrimSpace(givenName)
	if ok && have == want && year == keepYear {
		return false, nil
	}
	code, err := a.Allocate(ctx, store, year, want)
	if err != nil {
		return false, err
	}
	m.Code = code
	return true, nil
}
