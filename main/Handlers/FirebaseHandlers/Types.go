package FirebaseHandlers

import "time"

const (
	usersCollection           = "users"
	locationsCollection       = "Locations"
	ratingsCollection         = "Ratings"
	archivedUsersCollection   = "ArchivedUsers"
	archivedRatingsCollection = "ArchivedRatings"
	profilePicPrefix          = "profilePics/"

	PermissionPublic      = "Public"
	PermissionFriendsOnly = "Friends-Only"

	// ratings carry a day-precision date string, not a timestamp
	ratingDateLayout = "01/02/2006"
	archiveRetention = 14 * 24 * time.Hour
)

type Rating struct {
	Id          string `firestore:"-" json:"id"`
	Stars       int    `firestore:"rating" json:"stars"`
	Description string `firestore:"ratingDescription" json:"reviewText"`
	UserId      string `firestore:"userid" json:"userId"`
	UserName    string `firestore:"userName" json:"authorName"`
	Timestamp   string `firestore:"timestamp" json:"createdAt"`
	PlaceMark   string `firestore:"placeMark" json:"placeKey"`
}

type ArchivedRating struct {
	Rating
	LocationId string    `firestore:"locationId"`
	ExpiresAt  time.Time `firestore:"expiresAt,omitempty"`
}

type Location struct {
	PlaceMark   string `firestore:"placeMark"`
	Description string `firestore:"description"`
	PlaceId     string `firestore:"placeId,omitempty"`
	Geohash     string `firestore:"geohash,omitempty"`
}

type User struct {
	Name               string    `firestore:"name"`
	Email              string    `firestore:"email"`
	UserId             string    `firestore:"userid"`
	FriendReqSent      []string  `firestore:"friendReqSent"`
	FriendReqRec       []string  `firestore:"friendReqRec"`
	Friends            []string  `firestore:"friends"`
	Rated              []string  `firestore:"rated"`
	Bio                string    `firestore:"bio"`
	ProfilePic         string    `firestore:"profilePic"`
	ProfilePermissions string    `firestore:"profilePermissions"`
	ExpiresAt          time.Time `firestore:"expiresAt,omitempty"`
}

// normalize replaces nil arrays so they are written as [] rather than null.
func (u *User) normalize() {
	if u.FriendReqSent == nil {
		u.FriendReqSent = []string{}
	}
	if u.FriendReqRec == nil {
		u.FriendReqRec = []string{}
	}
	if u.Friends == nil {
		u.Friends = []string{}
	}
	if u.Rated == nil {
		u.Rated = []string{}
	}
	if u.ProfilePermissions != PermissionFriendsOnly {
		u.ProfilePermissions = PermissionPublic
	}
}

// UserSummary is what other users get to see in lists.
type UserSummary struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	ProfilePicUrl string `json:"profilePicUrl,omitempty"`
}

type Profile struct {
	UserSummary
	Bio             string   `json:"bio,omitempty"`
	Permissions     string   `json:"profilePermissions"`
	Rated           []string `json:"rated,omitempty"`
	Friends         []string `json:"friends,omitempty"`
	Restricted      bool     `json:"restricted"`
	IsSelf          bool     `json:"isSelf"`
	IsFriend        bool     `json:"isFriend"`
	RequestPending  bool     `json:"requestPending"`
	RequestReceived bool     `json:"requestReceived"`
}
