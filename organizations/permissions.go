package organizations

import (
	"context"
	"fmt"

	"linkedevents/db"
	"linkedevents/models"

	"go.mongodb.org/mongo-driver/bson"
)

func OrgByID(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := db.OrganizationsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&org); err != nil {
		return nil, err
	}
	return &org, nil
}

// ExpandPublishers widens organization ids with replacements in both
// directions: events published by an organization that was later replaced by
// a requested one, or that a requested one was replaced by, still match.
func ExpandPublishers(ctx context.Context, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range ids {
		add(id)
	}

	cursor, err := db.OrganizationsCollection.Find(ctx, bson.M{"$or": bson.A{
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"replaced_by": bson.M{"$in": ids}},
	}})
	if err != nil {
		return nil, fmt.Errorf("publisher expansion: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var org models.Organization
		if err := cursor.Decode(&org); err != nil {
			return nil, err
		}
		add(org.ID)
		add(org.ReplacedBy)
	}
	return out, cursor.Err()
}

// DescendantIDs expands organization ids to their entire subtree, the ids
// themselves included. Breadth-first over the parent pointers.
func DescendantIDs(ctx context.Context, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	frontier := append([]string{}, ids...)
	for _, id := range ids {
		seen[id] = true
		out = append(out, id)
	}

	for len(frontier) > 0 {
		cursor, err := db.OrganizationsCollection.Find(ctx, bson.M{"parent": bson.M{"$in": frontier}})
		if err != nil {
			return nil, fmt.Errorf("descendant expansion: %w", err)
		}
		var next []string
		for cursor.Next(ctx) {
			var org models.Organization
			if err := cursor.Decode(&org); err != nil {
				cursor.Close(ctx)
				return nil, err
			}
			if !seen[org.ID] {
				seen[org.ID] = true
				out = append(out, org.ID)
				next = append(next, org.ID)
			}
		}
		err = cursor.Err()
		cursor.Close(ctx)
		if err != nil {
			return nil, err
		}
		frontier = next
	}
	return out, nil
}

// EditableOrgIDs lists the organizations whose resources the user may edit:
// the organizations administering them directly plus their whole subtrees.
func EditableOrgIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	cursor, err := db.OrganizationsCollection.Find(ctx, bson.M{"admin_users": userID})
	if err != nil {
		return nil, fmt.Errorf("admin org lookup: %w", err)
	}
	var roots []string
	for cursor.Next(ctx) {
		var org models.Organization
		if err := cursor.Decode(&org); err != nil {
			cursor.Close(ctx)
			return nil, err
		}
		roots = append(roots, org.ID)
	}
	err = cursor.Err()
	cursor.Close(ctx)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, nil
	}
	return DescendantIDs(ctx, roots)
}

// CanEdit decides whether the actor (a user id or an api-key data source)
// may modify a resource owned by the given publisher and data source.
func CanEdit(ctx context.Context, userID, dsActor, publisher, resourceDS string) (bool, error) {
	if dsActor != "" {
		// An api-key actor owns the records of its own data source.
		return dsActor == resourceDS, nil
	}
	if userID == "" {
		return false, nil
	}
	// Records from a source system that forbids user edits stay read-only
	// even for organization admins.
	var ds models.DataSource
	if err := db.DataSourcesCollection.FindOne(ctx, bson.M{"_id": resourceDS}).Decode(&ds); err == nil {
		if !ds.UserEditableResources {
			return false, nil
		}
	}
	editable, err := EditableOrgIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range editable {
		if id == publisher {
			return true, nil
		}
	}
	return false, nil
}
