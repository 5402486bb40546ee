package profile

import "slices"

// DevServer configures the local development server attached to a profile.
type DevServer struct {
	Listen           string   `yaml:"listen" json:"listen"`
	TLS              bool     `yaml:"tls" json:"tls"`
	Compress         bool     `yaml:"compress" json:"compress"`
	AllowedHosts     []string `yaml:"allowed_hosts" json:"allowed_hosts"`
	StaticDir        string   `yaml:"static_dir" json:"static_dir"`
	StaticPublicPath string   `yaml:"static_public_path" json:"static_public_path"`
	ProxyTarget      string   `yaml:"proxy_target" json:"proxy_target"`
	ChangeOrigin     bool     `yaml:"change_origin" json:"change_origin"`
	FontCommand      string   `yaml:"font_command" json:"font_command"`
	StatusVersion    int      `yaml:"status_version" json:"status_version"`
}

func (d DevServer) Clone() DevServer {
	d.AllowedHosts = slices.Clone(d.AllowedHosts)
	return d
}

// DevServerOverride holds settings layered over a DevServer. Unset fields
// keep the underlying value; booleans are pointers so false can be set.
type DevServerOverride struct {
	Listen           string   `yaml:"listen" json:"listen"`
	TLS              *bool    `yaml:"tls" json:"tls"`
	Compress         *bool    `yaml:"compress" json:"compress"`
	AllowedHosts     []string `yaml:"allowed_hosts" json:"allowed_hosts"`
	StaticDir        string   `yaml:"static_dir" json:"static_dir"`
	StaticPublicPath string   `yaml:"static_public_path" json:"static_public_path"`
	ProxyTarget      string   `yaml:"proxy_target" json:"proxy_target"`
	ChangeOrigin     *bool    `yaml:"change_origin" json:"change_origin"`
	FontCommand      string   `yaml:"font_command" json:"font_command"`
	StatusVersion    int      `yaml:"status_version" json:"status_version"`
}

// Overlay applies the set fields of o on top of d.
func (d DevServer) Overlay(o DevServerOverride) DevServer {
	out := d.Clone()
	if o.Listen != "" {
		out.Listen = o.Listen
	}
	if o.TLS != nil {
		out.TLS = *o.TLS
	}
	if o.Compress != nil {
		out.Compress = *o.Compress
	}
	if len(o.AllowedHosts) > 0 {
		out.AllowedHosts = slices.Clone(o.AllowedHosts)
	}
	if o.StaticDir != "" {
		out.StaticDir = o.StaticDir
	}
	if o.StaticPublicPath != "" {
		out.StaticPublicPath = o.StaticPublicPath
	}
	if o.ProxyTarget != "" {
		out.ProxyTarget = o.ProxyTarget
	}
	if o.ChangeOrigin != nil {
		out.ChangeOrigin = *o.ChangeOrigin
	}
	if o.FontCommand != "" {
		out.FontCommand = o.FontCommand
	}
	if o.StatusVersion != 0 {
		out.StatusVersion = o.StatusVersion
	}
	return out
}
