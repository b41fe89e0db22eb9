package events

import (
	"context"
	"fmt"
	"time"

	"linkedevents/db"
	"linkedevents/keywords"
	"linkedevents/models"
	"linkedevents/organizations"
	"linkedevents/places"
	"linkedevents/rdx"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultFilterDeps wires the filter builder to the live Mongo collections and
// the Redis ongoing cache.
func DefaultFilterDeps() FilterDeps {
	return FilterDeps{
		Now:                  time.Now,
		ResolveKeywords:      keywords.ResolveKeywordIDs,
		ExpandKeywordSets:    keywords.ExpandKeywordSets,
		ExpandPublishers:     organizations.ExpandPublishers,
		DescendantPublishers: organizations.DescendantIDs,
		PlacesInBBox:         places.PlacesInBBox,
		PrivateDataSources:   privateDataSources,
		RecurringSuperIDs:    recurringSuperIDs,
		Ongoing:              rdx.RedisOngoing{Client: rdx.Conn},
	}
}

func privateDataSources(ctx context.Context) ([]string, error) {
	cursor, err := db.DataSourcesCollection.Find(ctx, bson.M{"private": true},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("private data source lookup: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

func recurringSuperIDs(ctx context.Context) ([]string, error) {
	cursor, err := db.EventsCollection.Find(ctx,
		bson.M{"super_event_type": models.SuperEventRecurring},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("recurring super lookup: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}
