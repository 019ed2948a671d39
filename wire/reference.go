package wire

import "fmt"

// Reference identifies a live object without carrying its state.
//
// InstanceID is only valid within one process; 0 means no live identity.
// Path is a hierarchy path.  AssetPath and AssetGUID identify external
// content.
type Reference struct {
	InstanceID int64  `json:"instanceID"`
	Path       string `json:"path,omitempty"`
	Name       string `json:"name,omitempty"`
	AssetPath  string `json:"assetPath,omitempty"`
	AssetGUID  string `json:"assetGuid,omitempty"`
	AssetType  string `json:"assetType,omitempty"`
}

// IsZero reports whether r carries no identity at all, which is how a null
// reference is written.
func (r Reference) IsZero() bool {
	return r.InstanceID == 0 && r.Path == "" && r.AssetGUID == "" && r.AssetPath == ""
}

func (r Reference) String() string {
	switch {
	case r.InstanceID != 0:
		return fmt.Sprintf("#%d", r.InstanceID)
	case r.Path != "":
		return r.Path
	case r.AssetGUID != "":
		return "guid:" + r.AssetGUID
	case r.AssetPath != "":
		return "asset:" + r.AssetPath
	default:
		return "<none>"
	}
}
