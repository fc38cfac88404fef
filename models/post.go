package models

import "time"

// PostPreviewRunes is the number of runes of text used as the string form of a post.
const PostPreviewRunes = 15

// Post is a text entry written by a user, optionally in a group and with an image.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index" json:"pub_date"`
	Image    string    `gorm:"size:255" json:"image,omitempty"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Group    *Group    `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
}

func (p Post) String() string {
	runes := []rune(p.Text)
	if len(runes) > PostPreviewRunes {
		runes = runes[:PostPreviewRunes]
	}
	return string(runes)
}
