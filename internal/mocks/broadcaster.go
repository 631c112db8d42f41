package mocks

import (
	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/ws"
)

type RoomBroadcasterMock struct {
	mock.Mock
}

func (m *RoomBroadcasterMock) BroadcastRoom(chatID int, event models.Event, exclude *ws.Client) {
	m.Called(chatID, event, exclude)
}

type GlobalBroadcasterMock struct {
	mock.Mock
}

func (m *GlobalBroadcasterMock) BroadcastAll(event models.Event) {
	m.Called(event)
}
