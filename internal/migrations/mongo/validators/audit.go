package validators

import "go.mongodb.org/mongo-driver/bson"

var AuditValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_id",
			"action",
			"performed_by",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"action": bson.M{
				"bsonType": "string",
				"enum": []string{
					"created",
					"cancelled",
					"updated",
					"priority_changed",
				},
			},

			"performed_by": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"details": bson.M{
				"bsonType": "object",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
