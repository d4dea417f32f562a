package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lironoshka111/supportme/internal/hub"
	"github.com/lironoshka111/supportme/internal/metrics"
	"github.com/lironoshka111/supportme/internal/moderation"
	"github.com/lironoshka111/supportme/internal/models"
	"github.com/lironoshka111/supportme/internal/storage"
)

var (
	ErrEmptyMessage = errors.New("message text is required")
	ErrNotMember    = errors.New("user is not a member of the room")
	ErrNotAuthor    = errors.New("only the author or the room admin may delete a message")
)

// Sender is the identity snapshot stamped onto outgoing messages.
type Sender struct {
	UserID      string
	DisplayName string
	PhotoURL    string
}

// ChatService owns messages, reactions, and live subscriptions.
type ChatService struct {
	store    storage.Store
	hub      *hub.Hub
	screener moderation.Screener
}

// NewChatService creates a new ChatService.
func NewChatService(store storage.Store, h *hub.Hub, screener moderation.Screener) *ChatService {
	return &ChatService{store: store, hub: h, screener: screener}
}

// senderSnapshot resolves the name and image stored with a message. Anonymous
// members are stamped with their in-room nickname instead of their profile.
func senderSnapshot(member *models.GroupMember, sender Sender) (name, image string) {
	name, image = sender.DisplayName, sender.PhotoURL
	if member.IsAnonymous {
		name, image = member.Nickname, member.Avatar
		if name == "" {
			name = "Anonymous"
		}
	} else if member.Nickname != "" {
		name = member.Nickname
	}
	return name, image
}

// SendMessage screens the text, stores the message, and fans it out to live
// subscribers. Screening is fail-open: if the moderation API errors, the
// original text goes through and the failure is only logged.
func (s *ChatService) SendMessage(ctx context.Context, roomID string, sender Sender, text string) (*models.Message, error) {
	slog.Info("SendMessage request received", "room_id", roomID, "user_id", sender.UserID)

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	member, err := s.store.GetMember(ctx, roomID, sender.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	result, err := s.screener.Screen(ctx, text)
	if err != nil {
		metrics.ModerationFailures.Inc()
		slog.Warn("Moderation screening failed, sending unfiltered", "room_id", roomID, "error", err)
	}
	if result.Censored {
		metrics.MessagesCensored.Inc()
		slog.Info("Message censored", "room_id", roomID, "user_id", sender.UserID)
	}

	name, image := senderSnapshot(member, sender)
	msg := &models.Message{
		RoomID:    roomID,
		UserID:    sender.UserID,
		UserName:  name,
		UserImage: image,
		Text:      result.Text,
		Censored:  result.Censored,
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		slog.Error("SendMessage failed", "room_id", roomID, "error", err)
		return nil, err
	}

	metrics.MessagesSent.Inc()
	s.hub.Publish(hub.Event{Type: hub.EventMessage, RoomID: roomID, Message: msg})

	return msg, nil
}

// History returns messages after the given sequence number, oldest first.
func (s *ChatService) History(ctx context.Context, roomID string, afterSeq int64, limit int) ([]*models.Message, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, roomID, afterSeq, limit)
}

// Subscribe opens a live stream on the room: the full history after afterSeq
// is replayed first, then new events tail in. The returned channel stays open
// until ctx is canceled, the subscription is closed, or the room is deleted.
//
// Replay and live-tail overlap is resolved by seq: events already covered by
// the replay are suppressed.
func (s *ChatService) Subscribe(ctx context.Context, roomID string, afterSeq int64) (<-chan hub.Event, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	// Attach to the hub before reading history so nothing falls between
	// replay and tail.
	sub := s.hub.Subscribe(roomID)

	history, err := s.store.ListMessages(ctx, roomID, afterSeq, 0)
	if err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan hub.Event, subscriberReplayBuffer(len(history)))
	metrics.ActiveSubscriptions.Inc()

	go func() {
		defer metrics.ActiveSubscriptions.Dec()
		defer close(out)
		defer sub.Close()

		lastSeq := afterSeq
		for _, msg := range history {
			select {
			case out <- hub.Event{Type: hub.EventMessage, RoomID: roomID, Message: msg}:
				lastSeq = msg.Seq
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				// Drop live messages the replay already delivered.
				if event.Type == hub.EventMessage && event.Message != nil && event.Message.Seq <= lastSeq {
					continue
				}
				if event.Type == hub.EventMessage && event.Message != nil {
					lastSeq = event.Message.Seq
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// subscriberReplayBuffer sizes the outgoing channel so the replay does not
// block the fanout goroutine on slow consumers.
func subscriberReplayBuffer(historyLen int) int {
	if historyLen < 16 {
		return 16
	}
	return historyLen
}

// DeleteMessage removes a message. Allowed for the author and the room admin.
func (s *ChatService) DeleteMessage(ctx context.Context, roomID, messageID, actorID string) error {
	slog.Info("DeleteMessage request received", "room_id", roomID, "message_id", messageID, "actor_id", actorID)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	msg, err := s.store.GetMessage(ctx, roomID, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != actorID && room.AdminID != actorID {
		return ErrNotAuthor
	}

	if err := s.store.DeleteMessage(ctx, roomID, messageID); err != nil {
		return err
	}

	s.hub.Publish(hub.Event{Type: hub.EventMessageDeleted, RoomID: roomID, MessageID: messageID})

	slog.Info("Message deleted", "room_id", roomID, "message_id", messageID)
	return nil
}

// ToggleReaction adds (active=true) or removes (active=false) a reaction.
// Both directions are idempotent: re-adding an existing reaction and removing
// an absent one are no-ops. Subscribers receive the message's updated state.
func (s *ChatService) ToggleReaction(ctx context.Context, roomID, messageID, userID, reactionType string, active bool) (*models.Message, error) {
	slog.Info("ToggleReaction request received",
		"room_id", roomID,
		"message_id", messageID,
		"user_id", userID,
		"reaction_type", reactionType,
		"active", active,
	)

	if _, err := s.store.GetMember(ctx, roomID, userID); err != nil {
		if errors.Is(err, storage.ErrMemberNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	// Bind the reaction to this room's message, not just any message ID.
	if _, err := s.store.GetMessage(ctx, roomID, messageID); err != nil {
		return nil, err
	}

	if active {
		err := s.store.AddReaction(ctx, messageID, userID, reactionType)
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.store.RemoveReaction(ctx, messageID, userID, reactionType); err != nil {
			return nil, err
		}
	}

	msg, err := s.store.GetMessage(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(hub.Event{Type: hub.EventReaction, RoomID: roomID, Message: msg})

	return msg, nil
}
