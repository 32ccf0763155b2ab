package model

import "time"

type Company struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name" validate:"required,min=1,max=120"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty" validate:"omitempty,max=300"`
	Website     string    `json:"website,omitempty" bson:"website,omitempty" validate:"omitempty,url"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	Tel         string    `json:"tel,omitempty" bson:"tel,omitempty" validate:"omitempty,e164"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}
