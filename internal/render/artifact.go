package render

// Artifact is one output record produced by a render worker: either a content
// blob or (when RedirectTarget is set) a redirect record. Artifacts are owned
// by the queue after production and dropped once written.
type Artifact struct {
	Path           string
	Title          string
	Mime           string
	Data           []byte
	RedirectTarget string

	// FrontArticle marks reader-visible pages; Compress routes the blob
	// into a compressed cluster; Share permits content-hash dedup (safe
	// only for assets identical by construction, like stylesheets).
	FrontArticle bool
	Compress     bool
	Share        bool
}

// IsRedirect reports whether the artifact is a redirect record.
func (a *Artifact) IsRedirect() bool {
	return a.RedirectTarget != ""
}

// page builds an HTML page artifact.
func page(path, title string, content []byte, front bool) Artifact {
	return Artifact{
		Path:         path,
		Title:        title,
		Mime:         "text/html",
		Data:         content,
		FrontArticle: front,
		Compress:     true,
	}
}

// jsonArtifact builds an application/json artifact.
func jsonArtifact(path, title string, content []byte) Artifact {
	return Artifact{
		Path:     path,
		Title:    title,
		Mime:     "application/json",
		Data:     content,
		Compress: true,
	}
}

// redirect builds a redirect artifact.
func redirect(path, title, target string, front bool) Artifact {
	return Artifact{
		Path:           path,
		Title:          title,
		RedirectTarget: target,
		FrontArticle:   front,
	}
}
