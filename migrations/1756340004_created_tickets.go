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
		bookings, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.TextField{Name: "number", Required: true, Max: 40},
			// Empty for legacy tickets sold before bookings existed.
			&core.RelationField{
				Name:         "booking",
				MaxSelect:    1,
				CollectionId: bookings.Id,
			},
			&core.RelationField{
				Name:         "owner",
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
			&core.TextField{Name: "tier", Max: 100},
			&core.NumberField{Name: "price", Min: float64Ptr(0)},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"confirmed", "used", "cancelled", "expired"},
			},
			&core.TextField{Name: "secret_hash", Max: 100},
			&core.SelectField{
				Name:      "refund_state",
				MaxSelect: 1,
				Values:    []string{"requested", "settled"},
			},
			&core.JSONField{Name: "check_in"},

			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_tickets_number", true, "number", "")
		collection.AddIndex("idx_tickets_booking", false, "booking", "")
		collection.AddIndex("idx_tickets_owner", false, "owner", "")
		collection.AddIndex("idx_tickets_event_status", false, "event, status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
