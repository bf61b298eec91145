package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	pkgcrypto "github.com/and161185/rollbook/internal/crypto"
	"github.com/and161185/rollbook/internal/errs"
	"github.com/and161185/rollbook/internal/model"
	"github.com/and161185/rollbook/internal/repository"
	"github.com/and161185/rollbook/internal/repository/kv"
	"github.com/and161185/rollbook/internal/store"
)

var testParams = pkgcrypto.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func newAuth(t *testing.T) (*AuthServiceImpl, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(0)
	log := zaptest.NewLogger(t)
	return NewAuthService(kv.NewUserRepo(mem, log), testParams, log), mem
}

func teacher(name string) model.User { return model.User{Username: name, Role: model.RoleTeacher} }

func TestAuth_Register_DuplicateReturnsFalse(t *testing.T) {
	t.Parallel()
	s, mem := newAuth(t)
	ctx := context.Background()

	ok, err := s.Register(ctx, teacher("alice"), "pwd")
	if err != nil || !ok {
		t.Fatalf("Register: ok=%v err=%v", ok, err)
	}
	ok, err = s.Register(ctx, teacher("alice"), "other")
	if err != nil || ok {
		t.Fatalf("duplicate Register: ok=%v err=%v, want false,nil", ok, err)
	}

	raw, _, _ := mem.Get(ctx, kv.KeyUsers)
	var stored []model.Credential
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("want exactly one entry, got %d", len(stored))
	}
	if strings.Contains(raw, "pwd") || !strings.HasPrefix(stored[0].SecretHash, "$argon2id$") {
		t.Fatalf("secret must be stored hashed: %s", raw)
	}

	if _, found, _ := mem.Get(ctx, kv.KeyCurrentUser); found {
		t.Fatalf("Register must not log the user in")
	}
}

func TestAuth_Register_Validation(t *testing.T) {
	t.Parallel()
	s, _ := newAuth(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, teacher(""), "p"); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on empty username, got %v", err)
	}
	if _, err := s.Register(ctx, teacher("a"), ""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on empty secret, got %v", err)
	}
	if _, err := s.Register(ctx, model.User{Username: "a", Role: "admin"}, "p"); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput on foreign role, got %v", err)
	}

	ok, err := s.Register(ctx, model.User{Username: "norole"}, "p")
	if err != nil || !ok {
		t.Fatalf("empty role should default to teacher: ok=%v err=%v", ok, err)
	}
	u, err := s.Login(ctx, "norole", "p")
	if err != nil || u == nil || u.Role != model.RoleTeacher {
		t.Fatalf("Login: u=%+v err=%v", u, err)
	}
}

func TestAuth_Login_SetsSessionWithoutSecret(t *testing.T) {
	t.Parallel()
	s, mem := newAuth(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, teacher("alice"), "correct"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	u, err := s.Login(ctx, "alice", "correct")
	if err != nil || u == nil {
		t.Fatalf("Login: u=%v err=%v", u, err)
	}
	if *u != teacher("alice") {
		t.Fatalf("bad user: %+v", u)
	}

	raw, found, _ := mem.Get(ctx, kv.KeyCurrentUser)
	if !found || strings.Contains(raw, "secret") || strings.Contains(raw, "argon2") {
		t.Fatalf("session must be credential-free, got %q", raw)
	}

	cur, err := s.CurrentUser(ctx)
	if err != nil || cur == nil || *cur != *u {
		t.Fatalf("CurrentUser: %+v err=%v, want %+v", cur, err, u)
	}
}

func TestAuth_Login_FailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()
	s, mem := newAuth(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob"} {
		if _, err := s.Register(ctx, teacher(name), name+"-pw"); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	// logged out: failures must not create a session
	if u, err := s.Login(ctx, "alice", "wrong"); err != nil || u != nil {
		t.Fatalf("wrong secret: u=%v err=%v", u, err)
	}
	if _, found, _ := mem.Get(ctx, kv.KeyCurrentUser); found {
		t.Fatalf("failed login created a session")
	}

	if _, err := s.Login(ctx, "alice", "alice-pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	before, _, _ := mem.Get(ctx, kv.KeyCurrentUser)

	if u, err := s.Login(ctx, "bob", "alice-pw"); err != nil || u != nil {
		t.Fatalf("wrong secret: u=%v err=%v", u, err)
	}
	if u, err := s.Login(ctx, "carol", "x"); err != nil || u != nil {
		t.Fatalf("unknown user: u=%v err=%v", u, err)
	}
	after, _, _ := mem.Get(ctx, kv.KeyCurrentUser)
	if before != after {
		t.Fatalf("session changed: %q -> %q", before, after)
	}
}

func TestAuth_Logout(t *testing.T) {
	t.Parallel()
	s, _ := newAuth(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, teacher("alice"), "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := s.Login(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	u, err := s.CurrentUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("CurrentUser after logout: %v %v", u, err)
	}
}

type fakeUsers struct {
	byName map[string]model.Credential
	sess   *model.User

	createErr error
	getErr    error
	setErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, c model.Credential) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byName[c.Username]; ok {
		return errs.ErrAlreadyExists
	}
	f.byName[c.Username] = c
	return nil
}
func (f *fakeUsers) GetByUsername(_ context.Context, name string) (*model.Credential, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.byName[name]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &c, nil
}
func (f *fakeUsers) GetSession(context.Context) (*model.User, error) { return f.sess, nil }
func (f *fakeUsers) SetSession(_ context.Context, u model.User) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sess = &u
	return nil
}
func (f *fakeUsers) ClearSession(context.Context) error { f.sess = nil; return nil }

func TestAuth_StorageErrorsPropagate(t *testing.T) {
	t.Parallel()
	boom := store.Wrap("get", errors.New("boom"))
	users := &fakeUsers{byName: map[string]model.Credential{}}
	s := NewAuthService(users, testParams, zaptest.NewLogger(t))
	ctx := context.Background()

	users.getErr = boom
	if _, err := s.Register(ctx, teacher("a"), "p"); !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("Register: want ErrStorage, got %v", err)
	}
	if _, err := s.Login(ctx, "a", "p"); !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("Login: want ErrStorage, got %v", err)
	}
	users.getErr = nil

	users.createErr = boom
	if _, err := s.Register(ctx, teacher("a"), "p"); !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("Register create: want ErrStorage, got %v", err)
	}
	users.createErr = nil

	if ok, err := s.Register(ctx, teacher("a"), "p"); err != nil || !ok {
		t.Fatalf("Register: ok=%v err=%v", ok, err)
	}
	users.setErr = boom
	if _, err := s.Login(ctx, "a", "p"); !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("Login set session: want ErrStorage, got %v", err)
	}
}

func TestAuth_Register_RaceOnCreateReportsFalse(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byName: map[string]model.Credential{}, createErr: errs.ErrAlreadyExists}
	s := NewAuthService(users, testParams, nil)

	ok, err := s.Register(context.Background(), teacher("a"), "p")
	if err != nil || ok {
		t.Fatalf("want false,nil when Create reports duplicate, got %v %v", ok, err)
	}
}

func TestAuth_Login_UnreadableHashIsMismatch(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{byName: map[string]model.Credential{
		"a": {Username: "a", Role: model.RoleTeacher, SecretHash: "plaintext"},
	}}
	s := NewAuthService(users, testParams, zaptest.NewLogger(t))

	u, err := s.Login(context.Background(), "a", "plaintext")
	if err != nil || u != nil {
		t.Fatalf("want nil,nil, got %v %v", u, err)
	}
	if users.sess != nil {
		t.Fatalf("session must stay empty")
	}
}
