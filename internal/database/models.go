package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username           string         `gorm:"uniqueIndex;size:64"`
	FirstName          string         `gorm:"size:64"`
	LastName           string         `gorm:"size:64"`
	Email              string         `gorm:"size:255"`
	PasswordHash       string         `gorm:"size:255"`
	MustChangePassword bool           `gorm:"default:false"`
	Preferences        datatypes.JSON `gorm:"type:jsonb"` // 前端个人页的界面偏好设置
}

// Company 表示投递目标公司。
// UserID 为空代表共享种子数据，所有用户可见但不可修改；
// 非空则为用户私有，名称在该用户范围内唯一。
type Company struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"size:255;not null;uniqueIndex:idx_companies_owner_name"`
	Website   string `gorm:"size:512"`
	Location  string `gorm:"size:255"`
	UserID    *uint  `gorm:"index;uniqueIndex:idx_companies_owner_name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobBoard 表示招聘平台，所有权语义与 Company 相同。
type JobBoard struct {
	ID        uint   `gorm:"primarykey"`
	Name      string `gorm:"size:255;not null;uniqueIndex:idx_job_boards_owner_name"`
	URL       string `gorm:"size:512"`
	UserID    *uint  `gorm:"index;uniqueIndex:idx_job_boards_owner_name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Application 表示一次求职投递记录。
// 软删除（DeletedAt）保证删除后状态历史仍可按 ID 查询。
// CompanyID 与 CustomCompanyName 至少有一个非空。
type Application struct {
	gorm.Model
	UserID            uint `gorm:"index;not null"`
	User              User
	CompanyID         *uint `gorm:"index"`
	Company           *Company
	CustomCompanyName string `gorm:"size:255"`
	JobBoardID        uint   `gorm:"index;not null"`
	JobBoard          JobBoard
	JobTitle          string `gorm:"size:255;not null"`
	Status            string `gorm:"size:32;not null"`
	AppliedAt         time.Time
	LastUpdated       time.Time
}

// StatusEvent 是追加式的状态历史，一经写入不再修改或删除。
// 按 ApplicationID（稳定主键值）关联，不随投递记录的删除级联。
type StatusEvent struct {
	ID            uint   `gorm:"primarykey"`
	ApplicationID uint   `gorm:"index;not null"`
	Status        string `gorm:"size:32;not null"`
	Note          string `gorm:"size:1024"`
	CreatedAt     time.Time
}

// TagValue 表示用户自定义的标签值（链接或文本），标签名按用户唯一。
type TagValue struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_tag_values_user_tag"`
	Tag       string `gorm:"size:128;not null;uniqueIndex:idx_tag_values_user_tag"`
	Value     string `gorm:"size:2048;not null"`
	Type      string `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CoverLetter 表示用户上传的求职信，文件本体存对象存储，这里只存对象键。
type CoverLetter struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"index;not null"`
	Name      string `gorm:"size:255;not null"`
	ObjectKey string `gorm:"size:512;not null"`
	Size      int64
	CreatedAt time.Time
}

// Migrate 执行全部模型的自动迁移。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Company{},
		&JobBoard{},
		&Application{},
		&StatusEvent{},
		&TagValue{},
		&CoverLetter{},
	)
}
