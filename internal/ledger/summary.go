package ledger

import (
	"context"

	"github.com/dukerupert/signups/internal/model"
)

// FulfillmentSummary reports need against pledges for an event's active items.
//
// Each item contributes min(signups, needed) to the event total so that an
// oversubscribed item cannot inflate progress. Once an event has kids, totals
// come only from kid items and are not clamped; any other active items are
// listed but left out and MixedKidItems is set.
func (l *Ledger) FulfillmentSummary(ctx context.Context, eventID int64) (*model.FulfillmentSummary, error) {
	event, err := l.events.GetByID(ctx, eventID)
	if err != nil || event == nil {
		return nil, err
	}
	kidCount, err := l.kids.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rows, err := l.signups.Fulfillment(ctx, eventID)
	if err != nil {
		return nil, err
	}

	sum := &model.FulfillmentSummary{
		EventID: eventID,
		Items:   rows,
		KidMode: kidCount > 0,
	}
	if sum.Items == nil {
		sum.Items = []model.ItemFulfillment{}
	}

	for _, r := range rows {
		switch {
		case !sum.KidMode:
			sum.TotalNeeded += r.Needed
			sum.TotalSignups += min(r.Signups, r.Needed)
		case r.KidItem:
			sum.TotalNeeded += r.Needed
			sum.TotalSignups += r.Signups
		default:
			sum.MixedKidItems = true
		}
	}
	return sum, nil
}
