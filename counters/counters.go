package counters

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/rdx"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type usage struct {
	count    int
	upcoming bool
}

// tally aggregates event counts per referenced id over one array field.
func tally(ctx context.Context, field string, now time.Time, into map[string]usage) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"deleted":            bson.M{"$ne": true},
			"publication_status": models.PublicationPublic,
		}}},
		{{Key: "$unwind", Value: "$" + field}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$" + field,
			"count":      bson.M{"$sum": 1},
			"latest_end": bson.M{"$max": "$end_time"},
		}}},
	}
	cursor, err := db.EventsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ID        string     `bson:"_id"`
			Count     int        `bson:"count"`
			LatestEnd *time.Time `bson:"latest_end"`
		}
		if err := cursor.Decode(&row); err != nil {
			return err
		}
		u := into[row.ID]
		u.count += row.Count
		if row.LatestEnd != nil && row.LatestEnd.After(now) {
			u.upcoming = true
		}
		into[row.ID] = u
	}
	return cursor.Err()
}

func writeCounts(ctx context.Context, coll *mongo.Collection, counts map[string]usage) error {
	seen := make([]string, 0, len(counts))
	for id, u := range counts {
		seen = append(seen, id)
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
			"n_events":            u.count,
			"has_upcoming_events": u.upcoming,
		}}); err != nil {
			return err
		}
	}
	// ids no longer referenced drop back to zero
	_, err := coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$nin": seen}}, bson.M{"$set": bson.M{
		"n_events":            0,
		"has_upcoming_events": false,
	}})
	return err
}

// RecountKeywords recomputes n_events and has_upcoming_events for every
// keyword from both the keywords and the audience relations.
func RecountKeywords(ctx context.Context) error {
	now := time.Now().UTC()
	counts := map[string]usage{}
	if err := tally(ctx, "keywords", now, counts); err != nil {
		return err
	}
	if err := tally(ctx, "audience", now, counts); err != nil {
		return err
	}
	return writeCounts(ctx, db.KeywordsCollection, counts)
}

// RecountPlaces recomputes the per-place event counters.
func RecountPlaces(ctx context.Context) error {
	now := time.Now().UTC()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"deleted":            bson.M{"$ne": true},
			"publication_status": models.PublicationPublic,
			"location":           bson.M{"$exists": true, "$ne": ""},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$location",
			"count":      bson.M{"$sum": 1},
			"latest_end": bson.M{"$max": "$end_time"},
		}}},
	}
	cursor, err := db.EventsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate locations: %w", err)
	}
	defer cursor.Close(ctx)

	counts := map[string]usage{}
	for cursor.Next(ctx) {
		var row struct {
			ID        string     `bson:"_id"`
			Count     int        `bson:"count"`
			LatestEnd *time.Time `bson:"latest_end"`
		}
		if err := cursor.Decode(&row); err != nil {
			return err
		}
		counts[row.ID] = usage{
			count:    row.Count,
			upcoming: row.LatestEnd != nil && row.LatestEnd.After(now),
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	return writeCounts(ctx, db.PlacesCollection, counts)
}

// textBlob flattens an event's translated texts into one lowercase haystack
// for the fuzzy ongoing search.
func textBlob(event models.Event) string {
	var parts []string
	for _, field := range []models.MultiLang{event.Name, event.Description, event.ShortDescription} {
		for _, text := range field {
			if text != "" {
				parts = append(parts, strings.ToLower(text))
			}
		}
	}
	return strings.Join(parts, " ")
}

// RefreshOngoing rebuilds the Redis id->text caches of ongoing and upcoming
// events: events at a physical location under local_ids, the rest under
// internet_ids.
func RefreshOngoing(ctx context.Context) error {
	now := time.Now().UTC()
	cursor, err := db.EventsCollection.Find(ctx, bson.M{
		"deleted":            bson.M{"$ne": true},
		"publication_status": models.PublicationPublic,
		"end_time":           bson.M{"$gte": now},
	})
	if err != nil {
		return fmt.Errorf("ongoing event lookup: %w", err)
	}
	defer cursor.Close(ctx)

	local := map[string]string{}
	internet := map[string]string{}
	for cursor.Next(ctx) {
		var event models.Event
		if err := cursor.Decode(&event); err != nil {
			return err
		}
		blob := textBlob(event)
		if blob == "" {
			continue
		}
		if event.Location != "" {
			local[event.ID] = blob
		} else {
			internet[event.ID] = blob
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	if err := rdx.ReplaceOngoing(ctx, rdx.OngoingLocalKey, local); err != nil {
		return fmt.Errorf("refresh %s: %w", rdx.OngoingLocalKey, err)
	}
	if err := rdx.ReplaceOngoing(ctx, rdx.OngoingInternetKey, internet); err != nil {
		return fmt.Errorf("refresh %s: %w", rdx.OngoingInternetKey, err)
	}
	log.Printf("ongoing cache refreshed: %d local, %d internet", len(local), len(internet))
	return nil
}
