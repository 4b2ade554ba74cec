package bulletin

// BulletinSchema is the JSON schema for bulletin files
const BulletinSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "motd": {
      "type": "string",
      "description": "Message of the day shown to each client after joining"
    },
    "announcements": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["schedule", "body"],
        "properties": {
          "schedule": {
            "type": "string",
            "minLength": 1,
            "description": "Five-field cron expression"
          },
          "body": {
            "type": "string",
            "minLength": 1,
            "description": "Announcement text broadcast to every client"
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
