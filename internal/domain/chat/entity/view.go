package entity

// PartyView exposes the "other side" of a conversation uniformly for both roles
type PartyView interface {
	Viewer() Role
	OtherPartyName() string
	OtherPartyAvatar() string
}

// CoupleView is a summary seen by the couple; the other party is the vendor
type CoupleView struct {
	Summary ConversationSummary
}

func (v CoupleView) Viewer() Role             { return RoleCouple }
func (v CoupleView) OtherPartyName() string   { return v.Summary.VendorName }
func (v CoupleView) OtherPartyAvatar() string { return v.Summary.VendorAvatar }

// VendorView is a summary seen by the vendor; the other party is the couple
type VendorView struct {
	Summary ConversationSummary
}

func (v VendorView) Viewer() Role             { return RoleVendor }
func (v VendorView) OtherPartyName() string   { return v.Summary.CoupleName }
func (v VendorView) OtherPartyAvatar() string { return v.Summary.CoupleAvatar }

// ViewOf picks the view variant matching the summary's viewer
func ViewOf(s ConversationSummary) PartyView {
	if s.ViewerRole == RoleVendor {
		return VendorView{Summary: s}
	}
	return CoupleView{Summary: s}
}
