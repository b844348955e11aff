package reservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"concierge/internal/reservation"
	"concierge/internal/reservation/store"
	"concierge/internal/rooms"
	roomstore "concierge/internal/rooms/store"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/requestcontext"
	"concierge/pkg/testutil"
)

type ReservationSuite struct {
	suite.Suite
	svc    *reservation.Service
	roomID id.RoomID
	userID id.UserID
	now    time.Time
}

func TestReservationSuite(t *testing.T) {
	suite.Run(t, new(ReservationSuite))
}

func (s *ReservationSuite) SetupTest() {
	roomSvc := rooms.NewService(roomstore.NewInMemoryStore(), nil, testutil.DiscardLogger())
	s.svc = reservation.NewService(store.NewInMemoryStore(), roomSvc, nil, testutil.DiscardLogger())

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.userID = id.UserID(uuid.New())

	room, err := roomSvc.Create(s.ctx(), &rooms.Room{
		Number:           "301",
		Type:             rooms.TypeDouble,
		Capacity:         2,
		NightlyRateCents: 25000,
		Available:        true,
	})
	s.Require().NoError(err)
	s.roomID = room.ID
}

func (s *ReservationSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ReservationSuite) request() reservation.CreateRequest {
	return reservation.CreateRequest{
		UserID:   s.userID,
		RoomID:   s.roomID,
		CheckIn:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		Guests:   2,
	}
}

func (s *ReservationSuite) TestCreate() {
	res, err := s.svc.Create(s.ctx(), s.request())
	s.Require().NoError(err)

	s.Equal(reservation.StatusPending, res.Status)
	s.Equal(3, res.Nights())
	s.Equal(int64(75000), res.TotalCents)
}

func (s *ReservationSuite) TestDateValidation() {
	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
	}{
		{"checkout before checkin",
			time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"zero-night stay",
			time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"checkin in the past",
			time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)},
		{"stay longer than a month",
			time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.request()
			req.CheckIn = tc.checkIn
			req.CheckOut = tc.checkOut
			_, err := s.svc.Create(s.ctx(), req)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func (s *ReservationSuite) TestOverlapConflict() {
	_, err := s.svc.Create(s.ctx(), s.request())
	s.Require().NoError(err)

	overlapping := s.request()
	overlapping.UserID = id.UserID(uuid.New())
	overlapping.CheckIn = time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	overlapping.CheckOut = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	_, err = s.svc.Create(s.ctx(), overlapping)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// Back to back is fine: checkout morning frees the room.
	adjacent := overlapping
	adjacent.CheckIn = time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	adjacent.CheckOut = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err = s.svc.Create(s.ctx(), adjacent)
	s.Require().NoError(err)
}

func (s *ReservationSuite) TestCancelledReservationFreesTheDates() {
	res, err := s.svc.Create(s.ctx(), s.request())
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Cancel(s.ctx(), res.ID, s.userID, false))

	_, err = s.svc.Create(s.ctx(), s.request())
	s.Require().NoError(err)
}

func (s *ReservationSuite) TestGuestCountAgainstCapacity() {
	req := s.request()
	req.Guests = 5
	_, err := s.svc.Create(s.ctx(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ReservationSuite) TestOwnershipVisibility() {
	res, err := s.svc.Create(s.ctx(), s.request())
	s.Require().NoError(err)

	stranger := id.UserID(uuid.New())

	_, err = s.svc.Get(s.ctx(), res.ID, stranger, false)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// Staff see everything.
	found, err := s.svc.Get(s.ctx(), res.ID, stranger, true)
	s.Require().NoError(err)
	s.Equal(res.ID, found.ID)
}

func (s *ReservationSuite) TestCancelRules() {
	res, err := s.svc.Create(s.ctx(), s.request())
	s.Require().NoError(err)

	s.Run("stranger cannot cancel", func() {
		err := s.svc.Cancel(s.ctx(), res.ID, id.UserID(uuid.New()), false)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("owner cancels before check-in, idempotently", func() {
		s.Require().NoError(s.svc.Cancel(s.ctx(), res.ID, s.userID, false))
		s.Require().NoError(s.svc.Cancel(s.ctx(), res.ID, s.userID, false))

		found, err := s.svc.Get(s.ctx(), res.ID, s.userID, false)
		s.Require().NoError(err)
		s.Equal(reservation.StatusCancelled, found.Status)
		s.NotNil(found.CancelledAt)
	})

	s.Run("no cancelling after check-in", func() {
		late, err := s.svc.Create(s.ctx(), s.request())
		s.Require().NoError(err)

		afterCheckIn := requestcontext.WithTime(context.Background(),
			time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
		err = s.svc.Cancel(afterCheckIn, late.ID, s.userID, false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ReservationSuite) TestQuoteStay() {
	quote, err := s.svc.QuoteStay(s.ctx(), s.roomID,
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		[]reservation.Extra{reservation.ExtraBreakfast})
	s.Require().NoError(err)

	s.Equal(7, quote.Nights)
	s.NotZero(quote.DiscountCents)
}
