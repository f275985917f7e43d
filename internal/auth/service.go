// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/membergate/membergate/internal/validate"
)

var tracer = otel.Tracer("membergate/auth")

// dummyPassword is hashed once per Service. Logins with no matching user
// verify against that hash so the response time matches a real attempt.
//
//nolint:gosec // G101: not a credential
const dummyPassword = "membergate-timing-dummy"

// Service provides registration, login and privilege-gated operations.
type Service struct {
	users     UserRepository
	sessions  *SessionManager
	hasher    PasswordHasher
	validator *validate.Validator
	logger    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithValidator shares a validator between services.
func WithValidator(v *validate.Validator) ServiceOption {
	return func(s *Service) {
		s.validator = v
	}
}

// NewService creates a new Service.
func NewService(users UserRepository, sessions *SessionManager, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}

	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validate.New()
	}
	return s, nil
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Register validates a create-account form, stores the user with standard
// privilege and establishes a session for them.
func (s *Service) Register(ctx context.Context, values url.Values) (session *Session, token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer func() { finish(span, "register", err) }()

	var form validate.RegisterForm
	if err = s.decode(ctx, &form, values); err != nil {
		return nil, "", err
	}
	span.SetAttributes(attribute.String("auth.username", form.Username))

	existing, err := s.users.FindByEitherOf(ctx, FieldUsername, form.Username, FieldEmail, form.Email)
	if err != nil {
		return nil, "", StoreUnavailable(err, "find existing user")
	}
	if len(existing) > 0 {
		return nil, "", alreadyExists(form.Username)
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(form.Username, form.Email, hash)
	if err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").With("operation", "create user").Wrap(err)
	}

	if err = s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, "", alreadyExists(form.Username)
		}
		return nil, "", StoreUnavailable(err, "insert user")
	}

	s.logger.InfoContext(ctx, "user registered", "username", user.Username, "email", user.Email)
	return s.sessions.Establish(ctx, user.Identity())
}

// Login checks credentials and issues a fresh session. Any session behind
// currentToken is terminated first. Every failure returns the same
// AUTH_LOGIN_FAILED error.
func (s *Service) Login(ctx context.Context, values url.Values, currentToken string) (session *Session, token string, err error) {
	ctx, span := tracer.Start(ctx, "auth.login")
	defer func() { finish(span, "login", err) }()

	var form validate.LoginForm
	if err = s.decode(ctx, &form, values); err != nil {
		return nil, "", loginFailed()
	}

	users, err := s.users.FindByField(ctx, FieldEmail, form.Email)
	if err != nil {
		return nil, "", StoreUnavailable(err, "find user by email")
	}

	var user *User
	targetHash := s.dummy()
	if len(users) == 1 {
		user = users[0]
		targetHash = user.PasswordHash
	}

	valid, verifyErr := s.hasher.Verify(form.Password, targetHash)
	if verifyErr != nil && user != nil {
		s.logger.WarnContext(ctx, "stored password hash unreadable",
			"username", user.Username,
			"error", verifyErr)
	}
	if user == nil || !valid || verifyErr != nil {
		s.logger.InfoContext(ctx, "login rejected", "email", form.Email, "matches", len(users))
		return nil, "", loginFailed()
	}

	if currentToken != "" {
		if termErr := s.sessions.Terminate(ctx, currentToken); termErr != nil {
			s.logger.WarnContext(ctx, "failed to terminate previous session", "error", termErr)
		}
	}

	s.logger.InfoContext(ctx, "user logged in", "username", user.Username)
	return s.sessions.Establish(ctx, user.Identity())
}

// Logout terminates the session behind token. Anonymous callers are a no-op.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.logout")
	defer func() { finish(span, "logout", err) }()

	return s.sessions.Terminate(ctx, token)
}

// Authorize is the admin privilege check. It re-reads the user from the
// store, so a demotion takes effect on the next request.
func (s *Service) Authorize(ctx context.Context, session *Session) (user *User, err error) {
	ctx, span := tracer.Start(ctx, "auth.authorize")
	defer func() { finish(span, "authorize", err) }()

	return s.authorize(ctx, session)
}

func (s *Service) authorize(ctx context.Context, session *Session) (*User, error) {
	if !s.sessions.Active(session) {
		return nil, oops.Code(CodeUnauthorized).Errorf("authentication required")
	}

	users, err := s.users.FindByField(ctx, FieldUsername, session.Username)
	if err != nil {
		return nil, StoreUnavailable(err, "find user by username")
	}
	if len(users) != 1 || !users[0].IsAdmin() {
		return nil, oops.Code(CodeForbidden).
			With("username", session.Username).
			Errorf("admin privilege required")
	}
	return users[0], nil
}

// AdminListing returns every user for an authorized admin.
func (s *Service) AdminListing(ctx context.Context, session *Session) (views []UserView, err error) {
	ctx, span := tracer.Start(ctx, "auth.admin_listing")
	defer func() { finish(span, "admin_listing", err) }()

	if _, err = s.authorize(ctx, session); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, StoreUnavailable(err, "list users")
	}

	views = make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, nil
}

// Promote grants admin privilege to the user named by the email value.
func (s *Service) Promote(ctx context.Context, session *Session, values url.Values) (err error) {
	ctx, span := tracer.Start(ctx, "auth.promote")
	defer func() { finish(span, "promote", err) }()

	return s.changePrivilege(ctx, session, values, PrivilegeAdmin)
}

// Demote sets the user named by the email value back to standard privilege.
func (s *Service) Demote(ctx context.Context, session *Session, values url.Values) (err error) {
	ctx, span := tracer.Start(ctx, "auth.demote")
	defer func() { finish(span, "demote", err) }()

	return s.changePrivilege(ctx, session, values, PrivilegeStandard)
}

func (s *Service) changePrivilege(ctx context.Context, session *Session, values url.Values, privilege Privilege) error {
	admin, err := s.authorize(ctx, session)
	if err != nil {
		return err
	}

	var form validate.PrivilegeForm
	if err := s.decode(ctx, &form, values); err != nil {
		return err
	}

	if err := s.setPrivilege(ctx, form.Email, privilege); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "privilege changed",
		"by", admin.Username,
		"target_email", form.Email,
		"privilege", string(privilege))
	return nil
}

// AssignPrivilege sets privilege on the user with email without a session
// check. It is the operator path used to bootstrap the first admin.
func (s *Service) AssignPrivilege(ctx context.Context, email string, privilege Privilege) (err error) {
	ctx, span := tracer.Start(ctx, "auth.assign_privilege")
	defer func() { finish(span, "assign_privilege", err) }()

	var form validate.PrivilegeForm
	if err = s.decode(ctx, &form, url.Values{"email": {email}}); err != nil {
		return err
	}
	if _, err = ParsePrivilege(string(privilege)); err != nil {
		return err
	}
	return s.setPrivilege(ctx, form.Email, privilege)
}

func (s *Service) setPrivilege(ctx context.Context, email string, privilege Privilege) error {
	err := s.users.UpdateField(ctx, FieldEmail, email, FieldPrivilege, string(privilege))
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeUserNotFound).
			With("target_email", email).
			Errorf("no user with that email")
	}
	return StoreUnavailable(err, "update privilege")
}

// LookupUser validates a single lookup key and returns the matching users.
// It backs the diagnostic lookup route.
func (s *Service) LookupUser(ctx context.Context, values url.Values) (views []UserView, err error) {
	ctx, span := tracer.Start(ctx, "auth.lookup_user")
	defer func() { finish(span, "lookup_user", err) }()

	var form validate.LookupForm
	if err = s.decode(ctx, &form, values); err != nil {
		return nil, err
	}

	users, err := s.users.FindByField(ctx, FieldUsername, form.User)
	if err != nil {
		return nil, StoreUnavailable(err, "find user by username")
	}
	views = make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, nil
}

// decode runs the validator and counts rejections. Field names go to the
// log only.
func (s *Service) decode(ctx context.Context, form any, values url.Values) error {
	err := s.validator.Decode(form, values)
	if err == nil {
		return nil
	}
	name := formLabel(form)
	RecordValidationRejection(name)
	s.logger.WarnContext(ctx, "input rejected",
		"form", name,
		"fields", validate.Fields(err))
	return err
}

// dummy returns a hash of dummyPassword made with the configured hasher.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to compute timing dummy hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func formLabel(form any) string {
	switch form.(type) {
	case *validate.RegisterForm:
		return "register"
	case *validate.LoginForm:
		return "login"
	case *validate.PrivilegeForm:
		return "privilege"
	case *validate.LookupForm:
		return "lookup"
	default:
		return "unknown"
	}
}

func alreadyExists(username string) error {
	return oops.Code(CodeAlreadyExists).
		With("username", username).
		Errorf("username or email already exists")
}

func loginFailed() error {
	return oops.Code(CodeLoginFailed).Errorf("login failed")
}

func finish(span trace.Span, operation string, err error) {
	RecordOperation(operation, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
