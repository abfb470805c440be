package service

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/binding"
	"github.com/ishpreet160/CertFlow/internal/config"
	"github.com/ishpreet160/CertFlow/internal/directory"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/notification"
	"github.com/ishpreet160/CertFlow/internal/policy"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/storage"
	"github.com/ishpreet160/CertFlow/internal/testutil"
	"github.com/ishpreet160/CertFlow/internal/token"
	"github.com/ishpreet160/CertFlow/internal/worker"
)

func init() { bcryptCost = bcrypt.MinCost }

// ── Recording queue ──────────────────────────────────────────────────────────

type recordingQueue struct {
	mu   sync.Mutex
	msgs []worker.EmailJobPayload
}

func (q *recordingQueue) Submit(_, _ string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, payload.(worker.EmailJobPayload))
	return nil
}

func (q *recordingQueue) sent() []worker.EmailJobPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]worker.EmailJobPayload(nil), q.msgs...)
}

// ── Harness ──────────────────────────────────────────────────────────────────

type harness struct {
	db      *gorm.DB
	store   *testutil.FaultyStore
	orphans *worker.MemoryOrphanSet
	queue   *recordingQueue
	tokens  *token.Issuer
	cfg     *config.Config

	users repository.UserRepository

	auth  AuthService
	userS UserService
	certS CertificateService
	refS  ReferenceService
	dash  DashboardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	h := &harness{
		db:      db,
		store:   testutil.NewFaultyStore(),
		orphans: worker.NewMemoryOrphanSet(),
		queue:   &recordingQueue{},
		tokens:  token.NewIssuer("test-secret", time.Hour, 15*time.Minute),
		cfg:     &config.Config{PasswordResetMinutes: 15, FrontendURL: "http://portal.test"},
	}

	h.users = repository.NewUserRepository(db)
	certs := repository.NewCertificateRepository(db)
	refs := repository.NewReferenceRepository(db)
	uploads := repository.NewUploadRepository(db)

	dir := directory.New(h.users)
	gate := policy.NewGate(dir)
	sweeper := worker.NewOrphanSweeper(h.orphans, h.store)
	binder := binding.New(h.store, uploads, sweeper)
	allow := storage.NewAllowlist([]string{"pdf", "png", "jpg", "jpeg"}, 10<<20)
	notifier := notification.New(h.queue, h.cfg.FrontendURL)

	h.auth = NewAuthService(h.users, dir, h.tokens, notifier, h.cfg)
	h.userS = NewUserService(h.users, dir, gate)
	h.certS = NewCertificateService(certs, uploads, h.users, gate, binder, allow, notifier)
	h.refS = NewReferenceService(refs, uploads, gate, binder, allow)
	h.dash = NewDashboardService(certs, gate)
	return h
}

func (h *harness) seed(t *testing.T, name string, role identity.Role, manager *model.User) (*model.User, identity.Claim) {
	t.Helper()
	u := testutil.SeedUser(t, h.db, name, role, manager)
	return u, u.Claim()
}

func (h *harness) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func pdfFile(name string) binding.File {
	body := "%PDF-1.4 test"
	return binding.File{Name: name, Size: int64(len(body)), Reader: strings.NewReader(body)}
}

func pngFile(name string) binding.File {
	body := []byte{0x89, 'P', 'N', 'G'}
	return binding.File{Name: name, Size: int64(len(body)), Reader: bytes.NewReader(body)}
}

func strPtr(s string) *string { return &s }
