package main

var (
	RootShort = `Portfolio site for Jamie Wells with server-driven product galleries.`

	ServeLong = `Serve the portfolio over HTTP.

Configuration comes from the environment (a .env file is read first when present):
PORT, GIN_MODE, LOG_LEVEL, DATABASE_PATH, ASSETS_DIR, CONTENT_PATH, PAGEVIEW_TTL,
PAGEVIEW_MAX, COOKIE_SECURE, SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS, TO_EMAIL, ADMIN_USERNAME and ADMIN_PASSWORD.`

	ContentCheckLong = `Load a site content file, validate it and print a short summary.
Without a path the embedded default content is checked.`

	PrivacyPolicy = []string{
		`Visits are counted with a salted hash of your IP address. The salt changes every time the
server restarts, so the hash cannot be turned back into an address or linked across restarts.`,
		`If your browser sends a Do Not Track header, nothing about your visit is recorded.`,
		`Clicks on the "Visit" buttons and use of the screenshot galleries are counted per product,
with no link to who clicked.`,
		`Messages sent through the contact form are stored so they can be answered, and forwarded
by email.`,
		`Visit records older than twelve months are deleted automatically.`,
	}
)
