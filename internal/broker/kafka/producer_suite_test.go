package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/BearBump/CargoBox/internal/broker/messages"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

type ProducerSuite struct {
	suite.Suite
	wm *writerMock
	p  *Producer
}

func (s *ProducerSuite) SetupTest() {
	s.wm = &writerMock{}
	s.p = newProducerWithWriter(s.wm)
}

func (s *ProducerSuite) TestStatusChangedKeyedByTrack() {
	code := "A-0042"
	ev := messages.PackageStatusChanged{
		PackageID:   "p-1",
		TrackNumber: "YT7788",
		ClientCode:  &code,
		From:        "in_transit",
		To:          "arrived",
		ChangedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	var got []kafka.Message
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).([]kafka.Message) }).
		Return(nil).
		Once()

	s.Require().NoError(s.p.PublishJSON(context.Background(), messages.TopicPackageStatusChanged, ev.TrackNumber, ev))
	s.Require().Len(got, 1)
	s.Equal(messages.TopicPackageStatusChanged, got[0].Topic)
	s.Equal("YT7788", string(got[0].Key))

	var back messages.PackageStatusChanged
	s.Require().NoError(json.Unmarshal(got[0].Value, &back))
	s.Equal("arrived", back.To)
	s.Require().NotNil(back.ClientCode)
	s.Equal(code, *back.ClientCode)
	s.Nil(back.TelegramID)
	s.wm.AssertExpectations(s.T())
}

func (s *ProducerSuite) TestUserRegisteredKeyedByUser() {
	ev := messages.UserRegistered{UserID: "u-1", TelegramID: "555", ClientCode: "B-0001"}
	s.wm.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 && string(msgs[0].Key) == "u-1" &&
			json.Valid(msgs[0].Value) && msgs[0].Topic == messages.TopicUserRegistered
	})).Return(nil).Once()

	s.Require().NoError(s.p.PublishJSON(context.Background(), messages.TopicUserRegistered, ev.UserID, ev))
	s.wm.AssertExpectations(s.T())
}

func (s *ProducerSuite) TestWriterErrorWrapped() {
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available")).Once()

	err := s.p.PublishJSON(context.Background(), messages.TopicUserRegistered, "u-1", messages.UserRegistered{})
	s.Require().ErrorContains(err, "kafka publish: leader not available")
}

func (s *ProducerSuite) TestMarshalErrorSkipsWriter() {
	err := s.p.PublishJSON(context.Background(), messages.TopicUserRegistered, "k", func() {})
	s.Require().ErrorContains(err, "marshal message")
	s.wm.AssertNotCalled(s.T(), "WriteMessages", mock.Anything, mock.Anything)
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}
