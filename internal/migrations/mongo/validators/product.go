package validators

import "go.mongodb.org/mongo-driver/bson"

var ProductValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"description",
			"price",
			"category",
			"stock",
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
				"minLength": 1,
				"maxLength": 100,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"price": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"discount_price": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"category": bson.M{
				"enum": []string{"clothing", "electronics", "home", "beauty", "sports", "books", "other"},
			},

			"stock": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"sizes": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"enum": []string{"XS", "S", "M", "L", "XL", "XXL"},
				},
			},

			"ratings": bson.M{
				"bsonType": "double",
				"minimum":  0,
				"maximum":  5,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
