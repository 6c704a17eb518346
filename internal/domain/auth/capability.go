package auth

// Capability is a closed enumeration of derived boolean entitlements.
// Using a typed constant set instead of string-keyed maps removes typo
// bugs and keeps the switch in Session.Can exhaustive.
type Capability string

const (
	CapAccessAudio          Capability = "access_audio"
	CapSaveFavorites        Capability = "save_favorites"
	CapAccessPremiumContent Capability = "access_premium_content"
	CapManageSongs          Capability = "manage_songs"
	CapManageAnnouncements  Capability = "manage_announcements"
	CapManageUsers          Capability = "manage_users"
)

// Capabilities returns every defined capability, ordered stably.
func Capabilities() []Capability {
	return []Capability{
		CapAccessAudio,
		CapSaveFavorites,
		CapAccessPremiumContent,
		CapManageSongs,
		CapManageAnnouncements,
		CapManageUsers,
	}
}
