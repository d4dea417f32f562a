package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lironoshka111/supportme/internal/models"
	"github.com/lironoshka111/supportme/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "supportme-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func makeRoom(title string, maxMembers int) *models.Room {
	return &models.Room{
		Title:      title,
		Category:   "Diabetes",
		MaxMembers: maxMembers,
		AdminID:    "admin-1",
	}
}

func TestRoomRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := &models.Room{
		Title:            "Diabetes Support",
		Category:         "Diabetes",
		Description:      "Weekly peer support group",
		Location:         &models.Location{DisplayName: "Tel Aviv, Israel", Lat: 32.08, Lon: 34.78},
		InfoLink:         "https://medlineplus.gov/diabetes.html",
		MeetingURL:       "https://meet.example.com/diabetes",
		IsOnline:         true,
		MaxMembers:       5,
		AdminID:          "admin-1",
		MeetingFrequency: "weekly",
		GroupRules:       "Be kind",
	}

	if err := store.CreateRoom(ctx, original); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if original.ID == "" {
		t.Error("Expected room ID to be generated")
	}
	if original.CreatedAt == 0 {
		t.Error("Expected CreatedAt to be set")
	}

	retrieved, err := store.GetRoom(ctx, original.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}

	if retrieved.Title != original.Title {
		t.Errorf("Title mismatch: got %s, want %s", retrieved.Title, original.Title)
	}
	if retrieved.Category != original.Category {
		t.Errorf("Category mismatch: got %s, want %s", retrieved.Category, original.Category)
	}
	if retrieved.Description != original.Description {
		t.Errorf("Description mismatch: got %s, want %s", retrieved.Description, original.Description)
	}
	if retrieved.MaxMembers != original.MaxMembers {
		t.Errorf("MaxMembers mismatch: got %d, want %d", retrieved.MaxMembers, original.MaxMembers)
	}
	if retrieved.AdminID != original.AdminID {
		t.Errorf("AdminID mismatch: got %s, want %s", retrieved.AdminID, original.AdminID)
	}
	if retrieved.Location == nil || retrieved.Location.DisplayName != original.Location.DisplayName {
		t.Errorf("Location mismatch: got %+v, want %+v", retrieved.Location, original.Location)
	}
	if retrieved.MemberCount != 0 {
		t.Errorf("Expected 0 members, got %d", retrieved.MemberCount)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRoom(context.Background(), "nonexistent-id")
	if !errors.Is(err, storage.ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestListRoomsFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	diabetes := makeRoom("Diabetes Support", 0)
	if err := store.CreateRoom(ctx, diabetes); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	asthma := &models.Room{Title: "Asthma Circle", Category: "Asthma", AdminID: "admin-2"}
	if err := store.CreateRoom(ctx, asthma); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	t.Run("query matches title case-insensitively", func(t *testing.T) {
		rooms, err := store.ListRooms(ctx, storage.RoomFilter{Query: "diabetes"})
		if err != nil {
			t.Fatalf("ListRooms failed: %v", err)
		}
		if len(rooms) != 1 || rooms[0].ID != diabetes.ID {
			t.Errorf("Expected only the diabetes room, got %d rooms", len(rooms))
		}
	})

	t.Run("category filter", func(t *testing.T) {
		rooms, err := store.ListRooms(ctx, storage.RoomFilter{Category: "Asthma"})
		if err != nil {
			t.Fatalf("ListRooms failed: %v", err)
		}
		if len(rooms) != 1 || rooms[0].ID != asthma.ID {
			t.Errorf("Expected only the asthma room, got %d rooms", len(rooms))
		}
	})

	t.Run("favorites filter", func(t *testing.T) {
		if err := store.SetFavorite(ctx, asthma.ID, "user-1", true); err != nil {
			t.Fatalf("SetFavorite failed: %v", err)
		}

		rooms, err := store.ListRooms(ctx, storage.RoomFilter{FavoritesOf: "user-1"})
		if err != nil {
			t.Fatalf("ListRooms failed: %v", err)
		}
		if len(rooms) != 1 || rooms[0].ID != asthma.ID {
			t.Errorf("Expected only the favorited room, got %d rooms", len(rooms))
		}
	})
}

func TestJoinRoomCapacityBoundary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Diabetes Support", 5)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// 5 distinct users join; all succeed.
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, u := range users {
		if _, err := store.JoinRoom(ctx, room.ID, u, storage.JoinOptions{}); err != nil {
			t.Fatalf("JoinRoom(%s) failed: %v", u, err)
		}
	}

	// The 6th is rejected with a room-full signal.
	_, err := store.JoinRoom(ctx, room.ID, "u6", storage.JoinOptions{})
	if !errors.Is(err, storage.ErrRoomFull) {
		t.Errorf("Expected ErrRoomFull for 6th join, got %v", err)
	}

	got, err := store.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.MemberCount != 5 {
		t.Errorf("Expected 5 members, got %d", got.MemberCount)
	}
}

func TestJoinRoomConcurrentNeverExceedsCapacity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Crowded Room", 3)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// 10 users race for 3 seats. The conditional insert must never let the
	// room exceed capacity, no matter the interleaving.
	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.JoinRoom(ctx, room.ID, userName(n), storage.JoinOptions{})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var joined, rejected int
	for err := range results {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, storage.ErrRoomFull):
			rejected++
		default:
			t.Errorf("Unexpected join error: %v", err)
		}
	}

	if joined != 3 {
		t.Errorf("Expected exactly 3 successful joins, got %d", joined)
	}
	if rejected != 7 {
		t.Errorf("Expected 7 rejections, got %d", rejected)
	}

	got, err := store.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.MemberCount != 3 {
		t.Errorf("Expected 3 members after concurrent joins, got %d", got.MemberCount)
	}
}

func userName(n int) string {
	return "user-" + string(rune('a'+n))
}

func TestJoinRoomDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if _, err := store.JoinRoom(ctx, room.ID, "u1", storage.JoinOptions{}); err != nil {
		t.Fatalf("First join failed: %v", err)
	}
	_, err := store.JoinRoom(ctx, room.ID, "u1", storage.JoinOptions{})
	if !errors.Is(err, storage.ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember, got %v", err)
	}
}

func TestJoinRoomMissingRoom(t *testing.T) {
	store := newTestStore(t)

	_, err := store.JoinRoom(context.Background(), "no-such-room", "u1", storage.JoinOptions{})
	if !errors.Is(err, storage.ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestJoinRoomRestricted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := store.RestrictUser(ctx, room.ID, "banned"); err != nil {
		t.Fatalf("RestrictUser failed: %v", err)
	}

	_, err := store.JoinRoom(ctx, room.ID, "banned", storage.JoinOptions{})
	if !errors.Is(err, storage.ErrUserRestricted) {
		t.Errorf("Expected ErrUserRestricted, got %v", err)
	}

	// Lifting the ban lets them in.
	if err := store.UnrestrictUser(ctx, room.ID, "banned"); err != nil {
		t.Fatalf("UnrestrictUser failed: %v", err)
	}
	if _, err := store.JoinRoom(ctx, room.ID, "banned", storage.JoinOptions{}); err != nil {
		t.Errorf("Join after unrestrict failed: %v", err)
	}
}

func TestFavoriteTogglePairRestoresState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := store.JoinRoom(ctx, room.ID, "u1", storage.JoinOptions{}); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	before, err := store.GetMember(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}

	if err := store.SetFavorite(ctx, room.ID, "u1", true); err != nil {
		t.Fatalf("SetFavorite(true) failed: %v", err)
	}
	mid, err := store.GetMember(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if !mid.IsFavorite {
		t.Error("Expected favorite after SetFavorite(true)")
	}

	if err := store.SetFavorite(ctx, room.ID, "u1", false); err != nil {
		t.Fatalf("SetFavorite(false) failed: %v", err)
	}
	after, err := store.GetMember(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if after.IsFavorite != before.IsFavorite {
		t.Errorf("Toggle pair did not restore state: got %v, want %v", after.IsFavorite, before.IsFavorite)
	}

	// The toggle must not have produced a second membership row.
	members, err := store.ListMembers(ctx, room.ID)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("Expected 1 membership row, got %d", len(members))
	}
}

func TestFavoriteWithoutMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	// Favoriting from the directory creates a bare membership row.
	if err := store.SetFavorite(ctx, room.ID, "u1", true); err != nil {
		t.Fatalf("SetFavorite failed: %v", err)
	}

	member, err := store.GetMember(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if !member.IsFavorite {
		t.Error("Expected favorite flag set")
	}
}

func TestLeaveRoom(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := store.JoinRoom(ctx, room.ID, "u1", storage.JoinOptions{}); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	if err := store.LeaveRoom(ctx, room.ID, "u1"); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}

	if err := store.LeaveRoom(ctx, room.ID, "u1"); !errors.Is(err, storage.ErrMemberNotFound) {
		t.Errorf("Expected ErrMemberNotFound on second leave, got %v", err)
	}
}

func TestDeleteRoomCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := store.JoinRoom(ctx, room.ID, "u1", storage.JoinOptions{}); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	msg := &models.Message{RoomID: room.ID, UserID: "u1", UserName: "User One", Text: "hello"}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if err := store.AddReaction(ctx, msg.ID, "u1", "like"); err != nil {
		t.Fatalf("AddReaction failed: %v", err)
	}

	if err := store.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}

	if _, err := store.GetRoom(ctx, room.ID); !errors.Is(err, storage.ErrRoomNotFound) {
		t.Errorf("Expected room gone, got %v", err)
	}
	if _, err := store.GetMember(ctx, room.ID, "u1"); !errors.Is(err, storage.ErrMemberNotFound) {
		t.Errorf("Expected membership gone, got %v", err)
	}
	if _, err := store.GetMessage(ctx, room.ID, msg.ID); !errors.Is(err, storage.ErrMessageNotFound) {
		t.Errorf("Expected messages gone, got %v", err)
	}
}

func TestMessageOrderingAndSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		msg := &models.Message{RoomID: room.ID, UserID: "u1", UserName: "User One", Text: text}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage(%s) failed: %v", text, err)
		}
		if msg.Seq == 0 {
			t.Errorf("Expected seq assigned for %q", text)
		}
	}

	messages, err := store.ListMessages(ctx, room.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}

	for i := 1; i < len(messages); i++ {
		if messages[i].Seq <= messages[i-1].Seq {
			t.Errorf("Seq not increasing at index %d: %d then %d", i, messages[i-1].Seq, messages[i].Seq)
		}
		if messages[i].CreatedAtMs < messages[i-1].CreatedAtMs {
			t.Errorf("Timestamps decreasing at index %d", i)
		}
	}
	for i, text := range texts {
		if messages[i].Text != text {
			t.Errorf("Message %d: got %q, want %q", i, messages[i].Text, text)
		}
	}

	// after filter elides earlier messages.
	tail, err := store.ListMessages(ctx, room.ID, messages[0].Seq, 0)
	if err != nil {
		t.Fatalf("ListMessages(after) failed: %v", err)
	}
	if len(tail) != 2 || tail[0].Text != "second" {
		t.Errorf("Expected tail starting at second message, got %d messages", len(tail))
	}
}

func TestReactionSetSemantics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	msg := &models.Message{RoomID: room.ID, UserID: "u1", UserName: "User One", Text: "hello"}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	t.Run("adding twice leaves set unchanged", func(t *testing.T) {
		if err := store.AddReaction(ctx, msg.ID, "u2", "like"); err != nil {
			t.Fatalf("AddReaction failed: %v", err)
		}
		if err := store.AddReaction(ctx, msg.ID, "u2", "like"); err != nil {
			t.Fatalf("Second AddReaction failed: %v", err)
		}

		got, err := store.GetMessage(ctx, room.ID, msg.ID)
		if err != nil {
			t.Fatalf("GetMessage failed: %v", err)
		}
		if len(got.Reactions) != 1 {
			t.Errorf("Expected 1 reaction, got %d", len(got.Reactions))
		}
	})

	t.Run("distinct types coexist for one user", func(t *testing.T) {
		if err := store.AddReaction(ctx, msg.ID, "u2", "love"); err != nil {
			t.Fatalf("AddReaction failed: %v", err)
		}

		got, err := store.GetMessage(ctx, room.ID, msg.ID)
		if err != nil {
			t.Fatalf("GetMessage failed: %v", err)
		}
		if len(got.Reactions) != 2 {
			t.Errorf("Expected 2 reactions, got %d", len(got.Reactions))
		}
	})

	t.Run("removing absent reaction is a no-op", func(t *testing.T) {
		if err := store.RemoveReaction(ctx, msg.ID, "u3", "wow"); err != nil {
			t.Fatalf("RemoveReaction failed: %v", err)
		}

		got, err := store.GetMessage(ctx, room.ID, msg.ID)
		if err != nil {
			t.Fatalf("GetMessage failed: %v", err)
		}
		if len(got.Reactions) != 2 {
			t.Errorf("Expected reaction set unchanged, got %d", len(got.Reactions))
		}
	})

	t.Run("remove deletes exactly one pair", func(t *testing.T) {
		if err := store.RemoveReaction(ctx, msg.ID, "u2", "like"); err != nil {
			t.Fatalf("RemoveReaction failed: %v", err)
		}

		got, err := store.GetMessage(ctx, room.ID, msg.ID)
		if err != nil {
			t.Fatalf("GetMessage failed: %v", err)
		}
		if len(got.Reactions) != 1 || got.Reactions[0].ReactionType != "love" {
			t.Errorf("Expected only the love reaction, got %+v", got.Reactions)
		}
	})

	t.Run("reacting to missing message fails", func(t *testing.T) {
		err := store.AddReaction(ctx, "no-such-message", "u2", "like")
		if !errors.Is(err, storage.ErrMessageNotFound) {
			t.Errorf("Expected ErrMessageNotFound, got %v", err)
		}
	})
}

func TestMarkSeenAndUnreadCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room := makeRoom("Room", 0)
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := store.JoinRoom(ctx, room.ID, "u1", storage.JoinOptions{}); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	send := func(text string, ms int64) {
		t.Helper()
		msg := &models.Message{RoomID: room.ID, UserID: "u2", UserName: "Other", Text: text, CreatedAtMs: ms}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	send("one", 1000)
	send("two", 2000)

	count, err := store.UnreadCount(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 unread before first visit, got %d", count)
	}

	prev, err := store.MarkSeen(ctx, room.ID, "u1", 2500)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if prev != 0 {
		t.Errorf("Expected zero previous marker, got %d", prev)
	}

	send("three", 3000)

	count, err = store.UnreadCount(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 unread after visit, got %d", count)
	}

	prev, err = store.MarkSeen(ctx, room.ID, "u1", 3500)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if prev != 2500 {
		t.Errorf("Expected previous marker 2500, got %d", prev)
	}

	if _, err := store.MarkSeen(ctx, room.ID, "stranger", 4000); !errors.Is(err, storage.ErrMemberNotFound) {
		t.Errorf("Expected ErrMemberNotFound for non-member, got %v", err)
	}
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail == nil || byEmail.ID != user.ID {
		t.Fatalf("GetUserByEmail returned wrong user: %+v", byEmail)
	}

	missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown email, got %+v", missing)
	}

	user.DisplayName = "Alice B"
	user.PhotoURL = "https://example.com/alice.png"
	if err := store.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.DisplayName != "Alice B" {
		t.Errorf("Expected updated name, got %s", byID.DisplayName)
	}
}

func TestListRoomsForUserFavoritesFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := makeRoom("First", 0)
	second := makeRoom("Second", 0)
	for _, room := range []*models.Room{first, second} {
		if err := store.CreateRoom(ctx, room); err != nil {
			t.Fatalf("CreateRoom failed: %v", err)
		}
		if _, err := store.JoinRoom(ctx, room.ID, "u1", storage.JoinOptions{}); err != nil {
			t.Fatalf("JoinRoom failed: %v", err)
		}
	}

	if err := store.SetFavorite(ctx, first.ID, "u1", true); err != nil {
		t.Fatalf("SetFavorite failed: %v", err)
	}

	rooms, err := store.ListRoomsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListRoomsForUser failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].ID != first.ID {
		t.Errorf("Expected favorited room first, got %s", rooms[0].Title)
	}
}
