package validators

import "go.mongodb.org/mongo-driver/bson"

var SubscriptionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"email",
			"verified",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"email": bson.M{
				"bsonType": "string",
				"pattern":  "^.+@.+$",
			},

			"verified": bson.M{
				"bsonType": "bool",
			},

			"verification_token": bson.M{
				"bsonType":  "string",
				"minLength": 48,
				"maxLength": 48,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
