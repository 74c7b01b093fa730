package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("bookings")

		collection.Fields.Add(
			&core.TextField{Name: "code", Required: true, Max: 20},
			&core.RelationField{
				Name:         "buyer",
				Required:     true,
				MaxSelect:    1,
				CollectionId: users.Id,
			},
			&core.RelationField{
				Name:         "organizer",
				Required:     true,
				MaxSelect:    1,
				CollectionId: users.Id,
			},
			&core.RelationField{
				Name:         "event",
				Required:     true,
				MaxSelect:    1,
				CollectionId: events.Id,
			},
			&core.JSONField{Name: "ticket_details", Required: true},
			&core.NumberField{Name: "subtotal", Min: float64Ptr(0)},
			&core.NumberField{Name: "service_fee", Min: float64Ptr(0)},
			&core.NumberField{Name: "total_amount", Min: float64Ptr(0)},
			&core.TextField{Name: "currency", Required: true, Max: 3},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "confirmed", "cancelled"},
			},
			&core.SelectField{
				Name:      "payment_status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"free", "pending", "completed", "failed", "refund-requested"},
			},
			&core.JSONField{Name: "event_snapshot"},

			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_bookings_buyer", false, "buyer", "")
		collection.AddIndex("idx_bookings_event", false, "event", "")
		// The sweeper's catch-up scan filters on (status, created).
		collection.AddIndex("idx_bookings_status_created", false, "status, created", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
