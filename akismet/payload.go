package akismet

// Comment is the flat key-value payload for comment-check and the submit
// operations. Field names follow the service's wire protocol; the same
// payload that produced a verdict is retained and re-sent verbatim when a
// moderator confirms or overturns it.
type Comment struct {
	Blog        string `url:"blog,omitempty"`
	CommentType string `url:"comment_type,omitempty"`
	Permalink   string `url:"permalink,omitempty"`
	Referrer    string `url:"referrer,omitempty"`
	UserIP      string `url:"user_ip,omitempty"`
	UserAgent   string `url:"user_agent,omitempty"`
	Author      string `url:"comment_author,omitempty"`
	AuthorEmail string `url:"comment_author_email,omitempty"`
	Content     string `url:"comment_content,omitempty"`
}

// Comment types understood by the classifier. Forum posts and profile bios
// get distinct tags so the service can specialize.
const (
	CommentTypeForumPost = "forum-post"
	CommentTypeSignup    = "signup"
)
