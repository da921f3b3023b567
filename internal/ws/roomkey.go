package ws

import "fmt"

// ChatRoomKey derives the canonical room identifier for a personal chat
// between two users. The pair is ordered ascending so both participants
// compute the identical key regardless of who connected first.
func ChatRoomKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("chat_%d-%d", a, b)
}

// CommentRoomKey derives the room identifier for a course's comment thread.
func CommentRoomKey(courseID uint) string {
	return fmt.Sprintf("comments_%d", courseID)
}
