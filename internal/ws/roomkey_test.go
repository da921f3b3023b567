package ws

import "testing"

func TestChatRoomKey_Canonical(t *testing.T) {
	if got := ChatRoomKey(5, 9); got != "chat_5-9" {
		t.Fatalf("expected chat_5-9, got %q", got)
	}
	if got := ChatRoomKey(9, 5); got != "chat_5-9" {
		t.Fatalf("key must be order-independent, got %q", got)
	}
	if ChatRoomKey(1, 2) == ChatRoomKey(1, 3) {
		t.Fatal("distinct pairs must map to distinct rooms")
	}
}

func TestChatRoomKey_SelfChat(t *testing.T) {
	if got := ChatRoomKey(7, 7); got != "chat_7-7" {
		t.Fatalf("expected chat_7-7, got %q", got)
	}
}

func TestCommentRoomKey(t *testing.T) {
	if got := CommentRoomKey(12); got != "comments_12" {
		t.Fatalf("expected comments_12, got %q", got)
	}
}
