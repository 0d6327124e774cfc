package validators

import "go.mongodb.org/mongo-driver/bson"

var OrderValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reference",
			"customer",
			"payment_method",
			"items",
			"total_price",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"reference": bson.M{
				"bsonType":  "string",
				"minLength": 4,
				"maxLength": 20,
			},

			"customer": bson.M{
				"bsonType": "object",
				"required": []string{"name", "email", "address"},
				"properties": bson.M{
					"name": bson.M{
						"bsonType":  "string",
						"minLength": 2,
						"maxLength": 100,
					},
					"email": bson.M{
						"bsonType": "string",
						"pattern":  "^.+@.+$",
					},
					"address": bson.M{
						"bsonType":  "string",
						"minLength": 5,
						"maxLength": 300,
					},
				},
			},

			"payment_method": bson.M{
				"enum": []string{"credit-card", "paypal", "bank-transfer"},
			},

			"items": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"product_id", "name", "unit_price", "quantity"},
					"properties": bson.M{
						"product_id": bson.M{
							"bsonType":  "string",
							"minLength": 24,
							"maxLength": 24,
						},
						"unit_price": bson.M{
							"bsonType": "long",
							"minimum":  0,
						},
						"quantity": bson.M{
							"bsonType": "int",
							"minimum":  1,
						},
					},
				},
			},

			"total_price": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"payment_status": bson.M{
				"enum": []string{"pending", "completed", "failed"},
			},

			"order_status": bson.M{
				"enum": []string{"processing", "shipped", "delivered", "cancelled"},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
