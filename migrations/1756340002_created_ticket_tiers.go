package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("ticket_tiers")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "event",
				Required:      true,
				MaxSelect:     1,
				CollectionId:  events.Id,
				CascadeDelete: true,
			},
			&core.TextField{Name: "name", Required: true, Max: 100},
			&core.NumberField{Name: "price", Min: float64Ptr(0)},
			&core.NumberField{Name: "capacity", Required: true, Min: float64Ptr(1), OnlyInt: true},
			&core.NumberField{Name: "remaining", Min: float64Ptr(0), OnlyInt: true},

			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// One tier name per event; the reserve statement addresses tiers by
		// (event, name).
		collection.AddIndex("idx_tiers_event_name", true, "event, name", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("ticket_tiers")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
