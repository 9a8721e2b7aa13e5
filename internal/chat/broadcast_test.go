package chat_test

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/omochice/room-chat/internal/chat"
	"github.com/omochice/room-chat/pkg/protocol"
)

func TestBroadcaster_Exclude(t *testing.T) {
	d := chat.NewDirectory(false)
	r := chat.NewRegistry(zerolog.Nop(), nil)
	b := chat.NewBroadcaster(d, r, nil)

	conns := make([]*mockConn, 3)
	ids := make([]chat.ConnID, 3)
	for i := range conns {
		conns[i] = newMockConn("")
		ids[i] = r.Accept(conns[i], protocol.JSON)
		d.Join(ids[i], "r", "")
	}

	assert.Equal(t, 3, b.Broadcast("r", protocol.CountUpdate{Count: 3}))
	assert.Equal(t, 2, b.BroadcastExcept("r", protocol.MessageRelay{From: "x", Message: "y"}, ids[0]))
	assert.Equal(t, 0, b.Broadcast("empty", protocol.CountUpdate{}))

	assert.Len(t, conns[0].frames(t), 1)
	assert.Len(t, conns[1].frames(t), 2)
	assert.Len(t, conns[2].frames(t), 2)
}

func TestBroadcaster_ConcurrentMembershipChanges(t *testing.T) {
	h := chat.NewHub(chat.Options{Logger: zerolog.Nop()})

	const n = 50
	ids := make([]chat.ConnID, n)
	for i := range ids {
		ids[i] = h.Accept(newMockConn(""), protocol.JSON)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id chat.ConnID) {
			defer wg.Done()
			data, _ := protocol.JSON.Encode(protocol.Join{RoomCode: "busy", Username: "u"})
			h.Receive(id, data)
			chatData, _ := protocol.JSON.Encode(protocol.Chat{RoomCode: "busy", Message: "m", From: "u"})
			h.Receive(id, chatData)
		}(id)
	}
	wg.Wait()
	assert.Len(t, h.Members("busy"), n)

	for _, id := range ids[:n/2] {
		wg.Add(1)
		go func(id chat.ConnID) {
			defer wg.Done()
			h.Disconnect(id)
		}(id)
	}
	wg.Wait()
	assert.Len(t, h.Members("busy"), n-n/2)
}
