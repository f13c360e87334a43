package main

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/repository"
)

// cliSessionID is the only session the CLI ever holds.
const cliSessionID = "portalctl"

// tokenSessionStore keeps the CLI session in the token file. Only the bearer token is persisted;
// the user is re-read from GET /me on restore.
type tokenSessionStore struct {
	tokens *repository.TokenFileStore
}

func newTokenSessionStore(tokens *repository.TokenFileStore) *tokenSessionStore {
	return &tokenSessionStore{tokens: tokens}
}

func (s *tokenSessionStore) Save(_ context.Context, session *models.Session, _ time.Duration) error {
	return s.tokens.Save(session.Token)
}

func (s *tokenSessionStore) Get(_ context.Context, _ string) (*models.Session, error) {
	token, err := s.tokens.Load()
	if err != nil {
		if errors.Is(err, repository.ErrNoToken) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, err
	}
	return &models.Session{ID: cliSessionID, Token: token}, nil
}

func (s *tokenSessionStore) Delete(_ context.Context, _ string) error {
	return s.tokens.Clear()
}
