package dashboard

// ProfileQuery fetches everything the dashboard shows in one round trip.
const ProfileQuery = `query {
  user {
    id, login, email, firstName, lastName, auditRatio,
    progresses(where: {isDone: {_eq: true}}) {
      createdAt, path, results { id, grade }
    },
    progressesByPath { count, createdAt, path, succeeded },
    transactions(where: {type: {_ilike: "%skill%"}}) {
      type, amount
    },
    xps {
      amount, path,
      event { createdAt }
    },
    audits(where: {auditedAt: {_is_null: false}}) {
      id, auditedAt, grade, group { captainLogin, members { userLogin } }
    }
  }
}`
