package proctoringRepository

const (
	queryCreateEvent = `
		INSERT INTO proctor_events (
			created_at,
			event_type,
			payload,
			risk_score
		) VALUES (
			:created_at,
			:event_type,
			:payload,
			:risk_score
		)
		RETURNING id
	`

	queryGetEventByID = `
		SELECT
			id,
			created_at,
			event_type,
			payload,
			risk_score
		FROM proctor_events
		WHERE id = :id
	`

	queryListEvents = `
		SELECT
			id,
			created_at,
			event_type,
			payload,
			risk_score
		FROM proctor_events
		WHERE (:event_type = '' OR event_type = :event_type)
		ORDER BY created_at DESC, id DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountEvents = `
		SELECT COUNT(*)
		FROM proctor_events
		WHERE (:event_type = '' OR event_type = :event_type)
	`
)
