package repositories

import "gorm.io/gorm"

// Repositories bundles the per-entity stores used by the controllers.
type Repositories struct {
	Users    UserRepository
	Groups   GroupRepository
	Posts    PostRepository
	Comments CommentRepository
	Follows  FollowRepository
}

// New builds gorm-backed repositories sharing one connection.
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:    NewGormUserRepository(db),
		Groups:   NewGormGroupRepository(db),
		Posts:    NewGormPostRepository(db),
		Comments: NewGormCommentRepository(db),
		Follows:  NewGormFollowRepository(db),
	}
}
