package model

import "time"

type Equipment struct {
	Projector       bool `json:"projector" bson:"projector" yaml:"projector"`
	VideoConference bool `json:"video_conference" bson:"video_conference" yaml:"video_conference"`
	Whiteboard      bool `json:"whiteboard" bson:"whiteboard" yaml:"whiteboard"`
	Phone           bool `json:"phone" bson:"phone" yaml:"phone"`
}

type Room struct {
	ID        string     `json:"id" bson:"_id" yaml:"id" validate:"required,max=64"`
	Name      string     `json:"name" bson:"name" yaml:"name" validate:"required,min=2,max=100"`
	Location  string     `json:"location" bson:"location" yaml:"location" validate:"omitempty,max=200"`
	Capacity  int        `json:"capacity" bson:"capacity" yaml:"capacity" validate:"required,min=1,max=1000"`
	Equipment Equipment  `json:"equipment" bson:"equipment" yaml:"equipment"`
	Status    RoomStatus `json:"status" bson:"status" yaml:"status" validate:"required,oneof=active maintenance"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at" yaml:"-"`
}

func (r *Room) IsActive() bool {
	return r.Status == RoomStatusActive
}
