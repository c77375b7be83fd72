package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinavax/vinavax-backend/pkg/config"
	"github.com/vinavax/vinavax-backend/pkg/db/models"
	"github.com/vinavax/vinavax-backend/pkg/enums"
	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
	"github.com/vinavax/vinavax-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail    map[string]*models.StaffUser
	created    []*models.StaffUser
	lastLogins []uuid.UUID
	findErr    error
}

func (s *stubUserRepo) Create(_ context.Context, row *models.StaffUser) error {
	row.ID = uuid.New()
	s.created = append(s.created, row)
	return nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.StaffUser, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.StaffUser, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.lastLogins = append(s.lastLogins, id)
	return nil
}

func testConfigs() (config.JWTConfig, config.PasswordConfig) {
	return config.JWTConfig{Secret: "secret", Issuer: "vinavax", ExpirationMinutes: 30},
		config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func newTestService(t *testing.T, repo *stubUserRepo) Service {
	t.Helper()
	jwtCfg, pwCfg := testConfigs()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		JWTConfig:      jwtCfg,
		PasswordConfig: pwCfg,
		Now:            func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginSuccess(t *testing.T) {
	_, pwCfg := testConfigs()
	hash, err := security.HashPassword("matkhau-123", pwCfg)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.StaffUser{
		ID:           uuid.New(),
		Email:        "admin@vinavax.vn",
		FullName:     "Tran Thi B",
		PasswordHash: hash,
		Role:         enums.StaffRoleAdmin,
		IsActive:     true,
	}
	repo := &stubUserRepo{byEmail: map[string]*models.StaffUser{user.Email: user}}
	svc := newTestService(t, repo)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "admin@vinavax.vn", Password: "matkhau-123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if len(repo.lastLogins) != 1 || repo.lastLogins[0] != user.ID {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, pwCfg := testConfigs()
	hash, _ := security.HashPassword("dung-roi", pwCfg)
	active := &models.StaffUser{ID: uuid.New(), Email: "a@vinavax.vn", PasswordHash: hash, Role: enums.StaffRoleStaff, IsActive: true}
	inactive := &models.StaffUser{ID: uuid.New(), Email: "b@vinavax.vn", PasswordHash: hash, Role: enums.StaffRoleStaff, IsActive: false}
	repo := &stubUserRepo{byEmail: map[string]*models.StaffUser{active.Email: active, inactive.Email: inactive}}
	svc := newTestService(t, repo)

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{"unknownEmail", LoginRequest{Email: "no@vinavax.vn", Password: "x"}},
		{"wrongPassword", LoginRequest{Email: "a@vinavax.vn", Password: "sai-roi"}},
		{"inactiveAccount", LoginRequest{Email: "b@vinavax.vn", Password: "dung-roi"}},
		{"emptyPassword", LoginRequest{Email: "a@vinavax.vn"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if typed.Message() != invalidCredentialsMessage {
				t.Fatalf("expected generic credentials message, got %q", typed.Message())
			}
		})
	}
}

func TestRegisterValidatesAndHashes(t *testing.T) {
	repo := &stubUserRepo{byEmail: map[string]*models.StaffUser{}}
	svc := newTestService(t, repo)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Nurse@VinaVax.VN ",
		FullName: "Le Van C",
		Password: "matkhau-123",
		Role:     enums.StaffRoleStaff,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if dto.Email != "nurse@vinavax.vn" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if len(repo.created) != 1 {
		t.Fatal("expected user row to be created")
	}
	if repo.created[0].PasswordHash == "matkhau-123" {
		t.Fatal("password must not be stored in plaintext")
	}
	if ok, _ := security.VerifyPassword("matkhau-123", repo.created[0].PasswordHash); !ok {
		t.Fatal("stored hash does not verify")
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "x@vinavax.vn", FullName: "X", Password: "short", Role: enums.StaffRoleStaff}); err == nil {
		t.Fatal("expected error for short password")
	}
	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "x@vinavax.vn", FullName: "X", Password: "matkhau-123", Role: "superuser"}); err == nil {
		t.Fatal("expected error for invalid role")
	}
}
