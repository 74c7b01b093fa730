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

		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.TextField{Name: "description", Max: 5000},
			&core.TextField{Name: "venue", Max: 500},
			&core.RelationField{
				Name:         "organizer",
				Required:     true,
				MaxSelect:    1,
				CollectionId: users.Id,
			},
			&core.DateField{Name: "start_time", Required: true},
			&core.DateField{Name: "end_time"},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"draft", "published", "ended"},
			},
			&core.TextField{Name: "currency", Required: true, Max: 3},
			&core.SelectField{
				Name:      "refund_policy",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"full", "partial", "no-refund"},
			},

			// Legacy single-price inventory, zero for tiered events.
			&core.NumberField{Name: "price", Min: float64Ptr(0)},
			&core.NumberField{Name: "capacity", Min: float64Ptr(0), OnlyInt: true},
			&core.NumberField{Name: "remaining", Min: float64Ptr(0), OnlyInt: true},

			&core.NumberField{Name: "attendee_count", Min: float64Ptr(0), OnlyInt: true},
			&core.NumberField{Name: "booking_count", Min: float64Ptr(0), OnlyInt: true},
			&core.NumberField{Name: "revenue", Min: float64Ptr(0)},

			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_events_organizer", false, "organizer", "")
		collection.AddIndex("idx_events_start_time", false, "start_time", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}

func float64Ptr(v float64) *float64 {
	return &v
}
