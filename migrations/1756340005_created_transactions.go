package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		bookings, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("transactions")

		collection.Fields.Add(
			&core.TextField{Name: "reference", Required: true, Max: 60},
			&core.RelationField{
				Name:         "booking",
				Required:     true,
				MaxSelect:    1,
				CollectionId: bookings.Id,
			},
			&core.NumberField{Name: "amount", Required: true, Min: float64Ptr(1)},
			&core.TextField{Name: "currency", Required: true, Max: 3},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "completed", "failed", "refunded"},
			},
			&core.TextField{Name: "authorization_url", Max: 500},
			&core.TextField{Name: "access_code", Max: 100},
			&core.TextField{Name: "channel", Max: 50},
			&core.TextField{Name: "gateway_response", Max: 500},
			&core.NumberField{Name: "refund_amount", Min: float64Ptr(0)},
			&core.DateField{Name: "settled_at"},

			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// The reference is the idempotency boundary with the gateway: unique,
		// and the target of every settlement compare-and-swap.
		collection.AddIndex("idx_transactions_reference", true, "reference", "")
		collection.AddIndex("idx_transactions_booking_status", false, "booking, status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("transactions")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
