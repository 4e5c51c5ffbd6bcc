package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, store *Store, username, handle string) *models.User {
	t.Helper()

	user := models.NewUser(username, handle, "hash")
	if err := store.Users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createPlaylist(t *testing.T, store *Store, ownerID, name string, v models.Visibility) *models.Playlist {
	t.Helper()

	p := &models.Playlist{OwnerID: ownerID, Name: name, Visibility: v}
	if err := store.Playlists.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	return p
}

func addItem(t *testing.T, store *Store, playlistID, title string, at time.Time) *models.PlaylistItem {
	t.Helper()

	item := &models.PlaylistItem{PlaylistID: playlistID, Title: title, URL: "http://x/" + title, MediaType: "mp3", AddedAt: at}
	if err := store.Items.Add(context.Background(), item); err != nil {
		t.Fatalf("failed to add item: %v", err)
	}
	return item
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		user := createUser(t, store, "alice", "@alice")

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
	})

	t.Run("GetByHandle", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		user := createUser(t, store, "alice", "@alice")

		retrieved, err := store.Users.GetByHandle(ctx, "@alice")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}
		if retrieved.Username() != "alice" {
			t.Errorf("expected username alice, got %s", retrieved.Username())
		}
		if retrieved.PasswordHash() != "hash" {
			t.Errorf("expected stored hash, got %s", retrieved.PasswordHash())
		}
	})

	t.Run("Get", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		user := createUser(t, store, "alice", "@alice")

		retrieved, err := store.Users.Get(ctx, user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.Handle() != "@alice" {
			t.Errorf("expected handle @alice, got %s", retrieved.Handle())
		}
	})

	t.Run("Exists", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		createUser(t, store, "alice", "@alice")

		for _, tc := range []struct {
			username, handle string
			want             bool
		}{
			{"alice", "@other", true},
			{"other", "@alice", true},
			{"bob", "@bob", false},
		} {
			got, err := store.Users.Exists(ctx, tc.username, tc.handle)
			if err != nil {
				t.Fatalf("exists failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Exists(%q, %q) = %v, want %v", tc.username, tc.handle, got, tc.want)
			}
		}
	})

	t.Run("Errors", func(t *testing.T) {
		t.Run("DuplicateHandle", func(t *testing.T) {
			store := NewStore(setupTestDB(t))
			createUser(t, store, "alice", "@alice")

			err := store.Users.Create(ctx, models.NewUser("alice2", "@alice", "hash"))
			if !errors.Is(err, shared.ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
		})

		t.Run("DuplicateUsername", func(t *testing.T) {
			store := NewStore(setupTestDB(t))
			createUser(t, store, "alice", "@alice")

			err := store.Users.Create(ctx, models.NewUser("alice", "@alice2", "hash"))
			if !errors.Is(err, shared.ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
		})

		t.Run("ValidationError", func(t *testing.T) {
			store := NewStore(setupTestDB(t))

			err := store.Users.Create(ctx, models.NewUser("alice", "alice", "hash"))
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("NotFound", func(t *testing.T) {
			store := NewStore(setupTestDB(t))

			if _, err := store.Users.GetByHandle(ctx, "@nobody"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := store.Users.Get(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})
}

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		alice := createUser(t, store, "alice", "@alice")
		code, _ := models.CodeVisibility("abcd1234")

		p := createPlaylist(t, store, alice.ID(), "Road Trip", code)
		if p.ID == "" {
			t.Fatal("playlist ID should be set after creation")
		}

		got, err := store.Playlists.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}

		if got.Name != "Road Trip" || got.OwnerID != alice.ID() {
			t.Errorf("unexpected playlist: %+v", got)
		}
		if c, ok := got.Visibility.AccessCode(); !ok || c != "ABCD1234" {
			t.Errorf("expected code ABCD1234, got %q (%v)", c, ok)
		}
	})

	t.Run("GetByAccessCode", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		alice := createUser(t, store, "alice", "@alice")
		code, _ := models.CodeVisibility("ABCD1234")
		p := createPlaylist(t, store, alice.ID(), "Shared", code)
		createPlaylist(t, store, alice.ID(), "Private", models.PrivateVisibility())

		got, err := store.Playlists.GetByAccessCode(ctx, "ABCD1234")
		if err != nil {
			t.Fatalf("failed to get playlist by code: %v", err)
		}
		if got.ID != p.ID {
			t.Errorf("expected %s, got %s", p.ID, got.ID)
		}

		if _, err := store.Playlists.GetByAccessCode(ctx, "ZZZZ9999"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DuplicateAccessCode", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		alice := createUser(t, store, "alice", "@alice")
		code, _ := models.CodeVisibility("ABCD1234")
		createPlaylist(t, store, alice.ID(), "First", code)

		err := store.Playlists.Create(ctx, &models.Playlist{OwnerID: alice.ID(), Name: "Second", Visibility: code})
		if !errors.Is(err, shared.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("ListByOwner", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		alice := createUser(t, store, "alice", "@alice")
		bob := createUser(t, store, "bob", "@bob")

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		older := &models.Playlist{OwnerID: alice.ID(), Name: "Older", CreatedAt: base}
		newer := &models.Playlist{OwnerID: alice.ID(), Name: "Newer", CreatedAt: base.Add(time.Hour)}
		for _, p := range []*models.Playlist{older, newer} {
			if err := store.Playlists.Create(ctx, p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}
		createPlaylist(t, store, bob.ID(), "Bob's", models.PublicVisibility())

		addItem(t, store, older.ID, "one", base)
		addItem(t, store, older.ID, "two", base)

		summaries, err := store.Playlists.ListByOwner(ctx, alice.ID())
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}

		if len(summaries) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(summaries))
		}
		if summaries[0].ID != newer.ID || summaries[1].ID != older.ID {
			t.Errorf("expected newest first, got %s then %s", summaries[0].Name, summaries[1].Name)
		}
		if summaries[0].ItemCount != 0 {
			t.Errorf("expected 0 items in %s, got %d", summaries[0].Name, summaries[0].ItemCount)
		}
		if summaries[1].ItemCount != 2 {
			t.Errorf("expected 2 items in %s, got %d", summaries[1].Name, summaries[1].ItemCount)
		}
	})

	t.Run("ListByOwnerEmpty", func(t *testing.T) {
		store := NewStore(setupTestDB(t))

		summaries, err := store.Playlists.ListByOwner(ctx, "nobody")
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if summaries == nil || len(summaries) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", summaries)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		t.Run("UnknownOwner", func(t *testing.T) {
			store := NewStore(setupTestDB(t))

			err := store.Playlists.Create(ctx, &models.Playlist{OwnerID: "missing", Name: "x"})
			if !errors.Is(err, shared.ErrStorage) {
				t.Fatalf("expected ErrStorage for foreign key failure, got %v", err)
			}
		})

		t.Run("BlankName", func(t *testing.T) {
			store := NewStore(setupTestDB(t))
			alice := createUser(t, store, "alice", "@alice")

			err := store.Playlists.Create(ctx, &models.Playlist{OwnerID: alice.ID(), Name: "   "})
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("DeleteMissing", func(t *testing.T) {
			store := NewStore(setupTestDB(t))

			if err := store.Playlists.Delete(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})
}

func TestItemRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Store, *models.Playlist) {
		store := NewStore(setupTestDB(t))
		alice := createUser(t, store, "alice", "@alice")
		return store, createPlaylist(t, store, alice.ID(), "Mix", models.PrivateVisibility())
	}

	t.Run("AddAndList", func(t *testing.T) {
		store, p := setup(t)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		first := addItem(t, store, p.ID, "first", base)
		second := addItem(t, store, p.ID, "second", base.Add(time.Minute))
		tied := addItem(t, store, p.ID, "tied", base.Add(time.Minute))

		items, err := store.Items.ListByPlaylist(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}

		want := []string{tied.ID, second.ID, first.ID}
		if len(items) != len(want) {
			t.Fatalf("expected %d items, got %d", len(want), len(items))
		}
		for i, id := range want {
			if items[i].ID != id {
				t.Errorf("item %d: expected %s, got %s (%s)", i, id, items[i].ID, items[i].Title)
			}
		}
	})

	t.Run("DuplicatesAllowed", func(t *testing.T) {
		store, p := setup(t)
		now := time.Now().UTC()

		addItem(t, store, p.ID, "same", now)
		addItem(t, store, p.ID, "same", now)

		items, err := store.Items.ListByPlaylist(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("OptionalFields", func(t *testing.T) {
		store, p := setup(t)

		item := &models.PlaylistItem{
			PlaylistID: p.ID,
			Title:      "clip",
			URL:        "/downloads/clip.mp4",
			MediaType:  "mp4",
			Thumbnail:  "http://img/1.jpg",
			Duration:   "N/A",
		}
		if err := store.Items.Add(ctx, item); err != nil {
			t.Fatalf("failed to add item: %v", err)
		}

		got, parent, err := store.Items.GetWithPlaylist(ctx, item.ID)
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if got.Thumbnail != "http://img/1.jpg" || got.Duration != "N/A" {
			t.Errorf("unexpected optional fields: %+v", got)
		}
		if parent.ID != p.ID || parent.OwnerID != p.OwnerID {
			t.Errorf("unexpected parent playlist: %+v", parent)
		}
		if parent.Visibility.Kind() != models.VisibilityPrivate {
			t.Errorf("expected private parent, got %s", parent.Visibility)
		}
	})

	t.Run("UpdateTitle", func(t *testing.T) {
		store, p := setup(t)
		item := addItem(t, store, p.ID, "old", time.Now().UTC())

		if err := store.Items.UpdateTitle(ctx, item.ID, "new"); err != nil {
			t.Fatalf("failed to update title: %v", err)
		}

		got, _, err := store.Items.GetWithPlaylist(ctx, item.ID)
		if err != nil {
			t.Fatalf("failed to get item: %v", err)
		}
		if got.Title != "new" {
			t.Errorf("expected title new, got %s", got.Title)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store, p := setup(t)
		item := addItem(t, store, p.ID, "gone", time.Now().UTC())

		if err := store.Items.Delete(ctx, item.ID); err != nil {
			t.Fatalf("failed to delete item: %v", err)
		}
		if _, _, err := store.Items.GetWithPlaylist(ctx, item.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		store, _ := setup(t)

		if err := store.Items.UpdateTitle(ctx, "missing", "x"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on update, got %v", err)
		}
		if err := store.Items.Delete(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on delete, got %v", err)
		}
		if err := store.Items.Add(ctx, &models.PlaylistItem{PlaylistID: "missing", Title: "x", MediaType: "mp3"}); !errors.Is(err, shared.ErrStorage) {
			t.Errorf("expected ErrStorage for unknown playlist, got %v", err)
		}
	})
}

func TestStoreWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsCascade", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		alice := createUser(t, store, "alice", "@alice")
		p := createPlaylist(t, store, alice.ID(), "Mix", models.PrivateVisibility())
		addItem(t, store, p.ID, "a", time.Now().UTC())
		addItem(t, store, p.ID, "b", time.Now().UTC())

		err := store.WithTx(ctx, func(tx *Store) error {
			if _, err := tx.Items.DeleteByPlaylist(ctx, p.ID); err != nil {
				return err
			}
			return tx.Playlists.Delete(ctx, p.ID)
		})
		if err != nil {
			t.Fatalf("transaction failed: %v", err)
		}

		if _, err := store.Playlists.Get(ctx, p.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected playlist gone, got %v", err)
		}

		var count int
		if err := store.DB().QueryRow("SELECT COUNT(*) FROM playlist_items").Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 items after cascade, got %d", count)
		}
	})

	t.Run("RollsBackOnError", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		alice := createUser(t, store, "alice", "@alice")
		p := createPlaylist(t, store, alice.ID(), "Mix", models.PrivateVisibility())
		addItem(t, store, p.ID, "a", time.Now().UTC())

		boom := errors.New("boom")
		err := store.WithTx(ctx, func(tx *Store) error {
			if _, err := tx.Items.DeleteByPlaylist(ctx, p.ID); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		items, err := store.Items.ListByPlaylist(ctx, p.ID)
		if err != nil {
			t.Fatalf("failed to list items: %v", err)
		}
		if len(items) != 1 {
			t.Errorf("expected rollback to keep 1 item, got %d", len(items))
		}
	})
}
