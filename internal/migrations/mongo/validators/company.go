package validators

import "go.mongodb.org/mongo-driver/bson"

var CompanyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 120,
			},

			"address": bson.M{
				"bsonType":  "string",
				"maxLength": 300,
			},

			"website": bson.M{
				"bsonType": "string",
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"tel": bson.M{
				"bsonType": "string",
				"pattern":  `^\+[1-9]\d{1,14}$`,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
