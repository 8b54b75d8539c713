package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// notDeleted merges the soft-delete predicate into a filter. Every read
// path goes through this helper so no query can forget it: a document
// with deletedAt set behaves exactly like one that does not exist.
func notDeleted(filter bson.M) bson.M {
	filter["deletedAt"] = bson.M{"$exists": false}
	return filter
}

// scoped builds the standard tenant-scoped, not-deleted filter for a
// single document.
func scoped(id, businessID primitive.ObjectID) bson.M {
	return notDeleted(bson.M{"_id": id, "businessId": businessID})
}
