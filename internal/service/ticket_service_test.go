package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestCreateTicket_Defaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Create(ctx, owner, TicketCreateInput{
		Title:       "VPN down",
		Description: "cannot connect",
		Priority:    3,
		CustomerUID: "UID-7",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNotStarted, ticket.Status)
	assert.Equal(t, domain.Unassigned, ticket.AssignedSupportEngineer)
	assert.Equal(t, "UID-7", ticket.UID)
	assert.EqualValues(t, 1, ticket.TID)

	second := f.createTicket(t, owner, TicketCreateInput{})
	assert.EqualValues(t, 2, second.TID)
}

func TestCreateTicket_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.Create(ctx, owner, TicketCreateInput{Description: "x", Priority: 3})
	requireCode(t, err, apperrors.CodeValidation)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "title")

	for _, priority := range []int{0, 6, -1} {
		_, err = f.tickets.Create(ctx, owner, TicketCreateInput{Title: "t", Description: "d", Priority: priority})
		requireCode(t, err, apperrors.CodeValidation)
		assert.Contains(t, apperrors.ToDomainError(err).Details, "priority")
	}

	_, err = f.tickets.Create(ctx, admin, TicketCreateInput{
		Title: "t", Description: "d", Priority: 2, CustomerUID: "UID-7", AssignedSupportEngineer: "UID-9",
	})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestCreateTicket_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := TicketCreateInput{Title: "t", Description: "d", Priority: 2}

	forOther := input
	forOther.CustomerUID = stranger.UID
	_, err := f.tickets.Create(ctx, owner, forOther)
	requireCode(t, err, apperrors.CodeForbidden)

	preassigned := input
	preassigned.AssignedSupportEngineer = engineer.UID
	_, err = f.tickets.Create(ctx, owner, preassigned)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.Create(ctx, domain.Identity{}, input)
	requireCode(t, err, apperrors.CodeUnauthorized)

	engineerPreassign := input
	engineerPreassign.CustomerUID = owner.UID
	engineerPreassign.AssignedSupportEngineer = engineer2.UID
	_, err = f.tickets.Create(ctx, engineer, engineerPreassign)
	requireCode(t, err, apperrors.CodeForbidden)

	byEngineer := input
	byEngineer.CustomerUID = owner.UID
	filed, err := f.tickets.Create(ctx, engineer, byEngineer)
	require.NoError(t, err)
	assert.Equal(t, domain.Unassigned, filed.AssignedSupportEngineer)

	byAdmin := input
	byAdmin.CustomerUID = owner.UID
	byAdmin.AssignedSupportEngineer = engineer.UID
	ticket, err := f.tickets.Create(ctx, admin, byAdmin)
	require.NoError(t, err)
	assert.Equal(t, owner.UID, ticket.UID)
	assert.Equal(t, engineer.UID, ticket.AssignedSupportEngineer)
}

func TestCreateTicket_AllocationFailureAbortsCreate(t *testing.T) {
	f := newFixture(t, withAllocator(failingAllocator{}))
	ctx := context.Background()

	_, err := f.tickets.Create(ctx, owner, TicketCreateInput{Title: "t", Description: "d", Priority: 1})
	requireCode(t, err, apperrors.CodeAllocation)

	list, err := f.tickets.List(ctx, admin, Page{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateTicket_ConcurrentBurstYieldsDistinctTIDs(t *testing.T) {
	f := newFixture(t)
	const n = 64

	tids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := f.tickets.Create(context.Background(), owner, TicketCreateInput{
				Title: "burst", Description: "load", Priority: 1,
			})
			if err == nil {
				tids <- ticket.TID
			}
		}()
	}
	wg.Wait()
	close(tids)

	seen := map[int64]bool{}
	for tid := range tids {
		assert.False(t, seen[tid], "duplicate tid %d", tid)
		seen[tid] = true
	}
	assert.Len(t, seen, n)
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.createTicket(t, owner, TicketCreateInput{})
	theirs := f.createTicket(t, stranger, TicketCreateInput{})
	assigned := f.createTicket(t, admin, TicketCreateInput{CustomerUID: stranger.UID, AssignedSupportEngineer: engineer.UID})

	_, err := f.tickets.Get(ctx, owner, theirs.TID)
	requireCode(t, err, apperrors.CodeNotFound)
	got, err := f.tickets.Get(ctx, owner, mine.TID)
	require.NoError(t, err)
	assert.Equal(t, mine.TID, got.TID)

	list, err := f.tickets.List(ctx, owner, Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, owner.UID, list[0].UID)

	list, err = f.tickets.List(ctx, engineer, Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, assigned.TID, list[0].TID)

	_, err = f.tickets.Get(ctx, engineer, mine.TID)
	requireCode(t, err, apperrors.CodeNotFound)
	list, err = f.tickets.List(ctx, engineer2, Page{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.tickets.List(ctx, admin, Page{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, assigned.TID, list[0].TID)

	_, err = f.tickets.Get(ctx, admin, 999)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestUpdateFields(t *testing.T) {
	ctx := context.Background()

	t.Run("admin sets status priority and assignment", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, owner, TicketCreateInput{})
		updated, err := f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{
			Status:                  ptr(domain.TicketStatusInProgress),
			Priority:                ptr(5),
			AssignedSupportEngineer: ptr(engineer.UID),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
		assert.Equal(t, 5, updated.Priority)
		assert.Equal(t, engineer.UID, updated.AssignedSupportEngineer)

		updated, err = f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{AssignedSupportEngineer: ptr("")})
		require.NoError(t, err)
		assert.Equal(t, domain.Unassigned, updated.AssignedSupportEngineer)
	})

	t.Run("admin may not edit description", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, owner, TicketCreateInput{})
		_, err := f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{Description: ptr("rewritten")})
		requireCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("denied field rejects whole patch", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, admin, TicketCreateInput{CustomerUID: owner.UID, AssignedSupportEngineer: engineer.UID})
		_, err := f.tickets.UpdateFields(ctx, engineer, ticket.TID, TicketPatch{
			Status:   ptr(domain.TicketStatusStuck),
			Priority: ptr(1),
		})
		requireCode(t, err, apperrors.CodeForbidden)
		assert.Equal(t, []string{"priority"}, apperrors.ToDomainError(err).Details["fields"])

		stored, err := f.tickets.Get(ctx, admin, ticket.TID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusNotStarted, stored.Status)
		assert.Equal(t, 3, stored.Priority)
	})

	t.Run("engineer edits own assigned ticket only", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, admin, TicketCreateInput{CustomerUID: owner.UID, AssignedSupportEngineer: engineer.UID})
		updated, err := f.tickets.UpdateFields(ctx, engineer, ticket.TID, TicketPatch{
			Status:      ptr(domain.TicketStatusStuck),
			Description: ptr("needs vendor"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusStuck, updated.Status)
		assert.Equal(t, "needs vendor", updated.Description)

		_, err = f.tickets.UpdateFields(ctx, engineer2, ticket.TID, TicketPatch{Status: ptr(domain.TicketStatusDone)})
		requireCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("customer edits description of own open ticket", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, owner, TicketCreateInput{})
		updated, err := f.tickets.UpdateFields(ctx, owner, ticket.TID, TicketPatch{Description: ptr("more detail")})
		require.NoError(t, err)
		assert.Equal(t, "more detail", updated.Description)

		_, err = f.tickets.UpdateFields(ctx, stranger, ticket.TID, TicketPatch{Description: ptr("hijack")})
		requireCode(t, err, apperrors.CodeForbidden)

		_, err = f.tickets.UpdateFields(ctx, owner, ticket.TID, TicketPatch{Status: ptr(domain.TicketStatusDone)})
		requireCode(t, err, apperrors.CodeForbidden)

		f.setStatus(t, ticket.TID, domain.TicketStatusDone)
		_, err = f.tickets.UpdateFields(ctx, owner, ticket.TID, TicketPatch{Description: ptr("too late")})
		requireCode(t, err, apperrors.CodeConflict)
	})

	t.Run("invalid values", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, owner, TicketCreateInput{})
		_, err := f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{Status: ptr(domain.TicketStatusDeleted)})
		requireCode(t, err, apperrors.CodeValidation)
		_, err = f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{Priority: ptr(9)})
		requireCode(t, err, apperrors.CodeValidation)
		_, err = f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{AssignedSupportEngineer: ptr(stranger.UID)})
		requireCode(t, err, apperrors.CodeValidation)
		_, err = f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{})
		requireCode(t, err, apperrors.CodeValidation)
		_, err = f.tickets.UpdateFields(ctx, admin, 404, TicketPatch{Priority: ptr(1)})
		requireCode(t, err, apperrors.CodeNotFound)
	})
}

func TestAttachReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, owner, TicketCreateInput{})

	for _, caller := range []domain.Identity{owner, stranger, admin, engineer} {
		_, err := f.tickets.AttachReview(ctx, caller, ticket.TID, "early", 4)
		requireCode(t, err, apperrors.CodeConflict)
	}

	f.setStatus(t, ticket.TID, domain.TicketStatusDone)

	reviewed, err := f.tickets.AttachReview(ctx, owner, ticket.TID, "great support", 5)
	require.NoError(t, err)
	require.NotNil(t, reviewed.Review)
	require.NotNil(t, reviewed.Rating)
	assert.Equal(t, "great support", *reviewed.Review)
	assert.Equal(t, 5, *reviewed.Rating)
	assert.True(t, reviewed.Reviewed)

	_, err = f.tickets.AttachReview(ctx, stranger, ticket.TID, "ok", 3)
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = f.tickets.AttachReview(ctx, admin, ticket.TID, "ok", 3)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.AttachReview(ctx, owner, ticket.TID, "meh", 0)
	requireCode(t, err, apperrors.CodeValidation)

	again, err := f.tickets.AttachReview(ctx, owner, ticket.TID, "on reflection, fine", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, *again.Rating)

	reviews, err := f.tickets.ListReviews(ctx, admin, Page{})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "on reflection, fine", *reviews[0].Review)

	reviews, err = f.tickets.ListReviews(ctx, stranger, Page{})
	require.NoError(t, err)
	assert.Empty(t, reviews)

	_, err = f.tickets.AttachReview(ctx, owner, 404, "ghost", 5)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("reason is mandatory and bounded", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, owner, TicketCreateInput{})
		for _, reason := range []string{"", "   ", strings.Repeat("x", 501)} {
			_, err := f.tickets.SoftDelete(ctx, admin, ticket.TID, reason)
			requireCode(t, err, apperrors.CodeValidation)
		}
		stored, err := f.tickets.Get(ctx, admin, ticket.TID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusNotStarted, stored.Status)

		_, err = f.tickets.SoftDelete(ctx, admin, ticket.TID, strings.Repeat("x", 500))
		require.NoError(t, err)
	})

	t.Run("deleted tickets leave default views", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, admin, TicketCreateInput{CustomerUID: owner.UID, AssignedSupportEngineer: engineer.UID})

		deleted, err := f.tickets.SoftDelete(ctx, owner, ticket.TID, "duplicate of #1")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusDeleted, deleted.Status)

		for _, caller := range []domain.Identity{admin, engineer, owner} {
			list, err := f.tickets.List(ctx, caller, Page{})
			require.NoError(t, err)
			assert.Empty(t, list)
			_, err = f.tickets.Get(ctx, caller, ticket.TID)
			requireCode(t, err, apperrors.CodeNotFound)

			gone, err := f.tickets.ListDeleted(ctx, caller, Page{})
			require.NoError(t, err)
			require.Len(t, gone, 1)
			require.NotNil(t, gone[0].DeletedBy)
			require.NotNil(t, gone[0].DeletedAt)
			require.NotNil(t, gone[0].DeleteReason)
			assert.Equal(t, owner.UID, *gone[0].DeletedBy)
			assert.Equal(t, "duplicate of #1", *gone[0].DeleteReason)
		}

		gone, err := f.tickets.ListDeleted(ctx, stranger, Page{})
		require.NoError(t, err)
		assert.Empty(t, gone)

		_, err = f.tickets.SoftDelete(ctx, admin, ticket.TID, "again")
		requireCode(t, err, apperrors.CodeConflict)
		_, err = f.tickets.UpdateFields(ctx, admin, ticket.TID, TicketPatch{Status: ptr(domain.TicketStatusDone)})
		requireCode(t, err, apperrors.CodeConflict)
	})

	t.Run("only admins and owners delete", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, admin, TicketCreateInput{CustomerUID: owner.UID, AssignedSupportEngineer: engineer.UID})
		_, err := f.tickets.SoftDelete(ctx, engineer, ticket.TID, "not mine to delete")
		requireCode(t, err, apperrors.CodeForbidden)
		_, err = f.tickets.SoftDelete(ctx, stranger, ticket.TID, "not mine either")
		requireCode(t, err, apperrors.CodeForbidden)
		_, err = f.tickets.SoftDelete(ctx, admin, 404, "missing")
		requireCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("stakeholders other than the actor are notified", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.createTicket(t, admin, TicketCreateInput{CustomerUID: owner.UID, AssignedSupportEngineer: engineer.UID})
		_, err := f.tickets.SoftDelete(ctx, owner, ticket.TID, "resolved elsewhere")
		require.NoError(t, err)

		ownerInbox, err := f.notifications.ListForReceiver(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, ownerInbox)

		engineerInbox, err := f.notifications.ListForReceiver(ctx, engineer)
		require.NoError(t, err)
		require.Len(t, engineerInbox, 1)
		n := engineerInbox[0]
		assert.Equal(t, owner.UID, n.SenderUID)
		require.NotNil(t, n.TicketID)
		assert.Equal(t, ticket.TID, *n.TicketID)
		require.NotNil(t, n.Reason)
		assert.Equal(t, "resolved elsewhere", *n.Reason)
		assert.False(t, n.Read)

		other := f.createTicket(t, owner, TicketCreateInput{})
		_, err = f.tickets.SoftDelete(ctx, admin, other.TID, "spam")
		require.NoError(t, err)
		ownerInbox, err = f.notifications.ListForReceiver(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, ownerInbox, 1)
		adminInbox, err := f.notifications.ListForReceiver(ctx, admin)
		require.NoError(t, err)
		assert.Empty(t, adminInbox)
	})

	t.Run("notification failure does not fail the delete", func(t *testing.T) {
		store := failingNotifications{}
		f := newFixture(t, withNotificationRepo(store))
		ticket := f.createTicket(t, owner, TicketCreateInput{})

		deleted, err := f.tickets.SoftDelete(ctx, admin, ticket.TID, "cleanup")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusDeleted, deleted.Status)
		assert.Equal(t, 1, f.logs.FilterMessage("emit notification failed").Len())
	})
}

func TestBuckets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	notStarted := f.createTicket(t, owner, TicketCreateInput{})
	inProgress := f.createTicket(t, admin, TicketCreateInput{CustomerUID: owner.UID, AssignedSupportEngineer: engineer.UID})
	f.setStatus(t, inProgress.TID, domain.TicketStatusInProgress)
	doneUnassigned := f.createTicket(t, stranger, TicketCreateInput{})
	f.setStatus(t, doneUnassigned.TID, domain.TicketStatusDone)
	stuck := f.createTicket(t, stranger, TicketCreateInput{})
	f.setStatus(t, stuck.TID, domain.TicketStatusStuck)
	deleted := f.createTicket(t, owner, TicketCreateInput{})
	_, err := f.tickets.SoftDelete(ctx, admin, deleted.TID, "dup")
	require.NoError(t, err)

	counts, err := f.tickets.CountByBucket(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.BucketCounts{Open: 1, Pending: 1, Solved: 1, Unassigned: 3}, counts)

	counts, err = f.tickets.CountByBucket(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.BucketCounts{Open: 1, Pending: 1, Unassigned: 1}, counts)

	counts, err = f.tickets.CountByBucket(ctx, engineer)
	require.NoError(t, err)
	assert.Equal(t, domain.BucketCounts{Pending: 1}, counts)

	unassigned, err := f.tickets.ListByStatusBucket(ctx, admin, "unassigned", Page{})
	require.NoError(t, err)
	var tids []int64
	for _, ticket := range unassigned {
		tids = append(tids, ticket.TID)
	}
	assert.ElementsMatch(t, []int64{notStarted.TID, doneUnassigned.TID, stuck.TID}, tids)

	solved, err := f.tickets.ListByStatusBucket(ctx, stranger, "solved", Page{})
	require.NoError(t, err)
	require.Len(t, solved, 1)
	assert.Equal(t, doneUnassigned.TID, solved[0].TID)

	open, err := f.tickets.ListByStatusBucket(ctx, stranger, "open", Page{})
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = f.tickets.ListByStatusBucket(ctx, admin, "archived", Page{})
	requireCode(t, err, apperrors.CodeValidation)
	_, err = f.tickets.CountByBucket(ctx, domain.Identity{})
	requireCode(t, err, apperrors.CodeUnauthorized)
}
