package validators

import "go.mongodb.org/mongo-driver/bson"

var objectIDString = bson.M{
	"bsonType":  "string",
	"minLength": 24,
	"maxLength": 24,
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user",
			"date",
			"day",
			"companies",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"user": objectIDString,

			"date": bson.M{
				"bsonType": "date",
			},

			"day": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"companies": bson.M{
				"bsonType":    "array",
				"minItems":    1,
				"uniqueItems": true,
				"items":       objectIDString,
			},

			"note": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "holder", "expires_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"holder": bson.M{
				"bsonType": "string",
			},
			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var BookingEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"event_id", "type", "booking_id", "user", "occurred_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"event_id": bson.M{
				"bsonType": "string",
			},
			"type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"booking.created",
					"booking.updated",
					"booking.deleted",
				},
			},
			"booking_id": objectIDString,
			"user":       objectIDString,
			"occurred_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
