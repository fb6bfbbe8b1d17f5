//go:build integration

package videos

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/pkg/database"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}
	if err := database.Migrate(ctx, pool, nil); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}
	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()
	os.Exit(code)
}

func resetDatabase(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `DELETE FROM videos; DELETE FROM users;`); err != nil {
		t.Fatalf("reset database: %v", err)
	}
}

func createUser(t *testing.T, email string) models.UserPublic {
	t.Helper()
	u, err := auth.NewRepository(testPool).Create(context.Background(), email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ToPublic()
}

func TestPostgresRepository_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)
	owner := createUser(t, "owner@example.com")
	repo := NewPostgresRepository(testPool)

	desc := "first"
	v := &models.Video{
		ID: uuid.New(), Title: "cats", Description: &desc, VideoURL: "videos/a.mp4", ImageURL: "images/a.png",
		SharedBy: owner.ID, SharedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, v); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, v); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate id: got %v, want ErrConflict", err)
	}

	got, err := repo.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "cats" || got.Description == nil || *got.Description != "first" || !got.SharedAt.Equal(v.SharedAt) {
		t.Fatalf("Get: %+v", got)
	}

	title, empty := "dogs", ""
	updated, err := repo.Update(ctx, v.ID, models.VideoPatch{Title: &title, Description: &empty})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "dogs" || updated.Description != nil || updated.VideoURL != v.VideoURL {
		t.Fatalf("Update: %+v", updated)
	}

	if err := repo.Delete(ctx, v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, v.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second Delete: got %v, want ErrNotFound", err)
	}
	if _, err := repo.Update(ctx, v.ID, models.VideoPatch{Title: &title}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Update missing: got %v, want ErrNotFound", err)
	}
}

func TestPostgresRepository_UnknownOwner(t *testing.T) {
	resetDatabase(t)
	repo := NewPostgresRepository(testPool)
	v := &models.Video{ID: uuid.New(), Title: "t", VideoURL: "v", ImageURL: "i", SharedBy: uuid.New(), SharedAt: time.Now().UTC()}
	if err := repo.Create(context.Background(), v); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPostgresRepository_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)
	alice := createUser(t, "alice@example.com")
	bob := createUser(t, "bob@example.com")
	repo := NewPostgresRepository(testPool)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i, owner := range []models.UserPublic{alice, bob, alice} {
		v := &models.Video{
			ID: uuid.New(), Title: fmt.Sprintf("v%d", i+1), VideoURL: "v", ImageURL: "i",
			SharedBy: owner.ID, SharedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, v); err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, v.ID)
	}

	page, err := repo.List(ctx, ListFilter{}, 0, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[1] || page[1].SharedBy != "bob@example.com" {
		t.Fatalf("page 1: %+v", page)
	}
	page, err = repo.List(ctx, ListFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 1 || page[0].ID != ids[0] {
		t.Fatalf("page 2: %+v", page)
	}

	mine, err := repo.List(ctx, ListFilter{SharedBy: &alice.ID}, 0, 10)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != ids[2] || mine[1].ID != ids[0] {
		t.Fatalf("filtered: %+v", mine)
	}

	if err := auth.NewRepository(testPool).Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	rest, err := repo.List(ctx, ListFilter{}, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != ids[1] {
		t.Fatalf("after cascade: %+v", rest)
	}
}
