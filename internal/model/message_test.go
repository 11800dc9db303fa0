package model

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

// The per-conversation index assignment reads MAX under a row lock; the
// unique index is the database-level guarantee that concurrent appends can
// never commit duplicate (conversation_id, message_index) pairs.
func TestMessageHasUniqueConversationIndex(t *testing.T) {
	s, err := schema.Parse(&Message{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}

	for _, idx := range s.ParseIndexes() {
		if idx.Class != "UNIQUE" {
			continue
		}
		var cols []string
		for _, f := range idx.Fields {
			cols = append(cols, f.DBName)
		}
		if len(cols) == 2 && cols[0] == "conversation_id" && cols[1] == "message_index" {
			return
		}
	}
	t.Fatal("messages must carry a unique index on (conversation_id, message_index)")
}
