package sqlinline

const QSelectSystemSetting = `--sql 24212e2f-dc0c-43ec-81b4-d1676594a695
select value
from system_settings
where key = $1::text
limit 1;
`

const QUpsertSystemSetting = `--sql 63abd838-e142-43ca-8bd7-98426dd38477
insert into system_settings (key, value, updated_at)
values ($1::text, $2::text, now())
on conflict (key) do update set
    value = excluded.value,
    updated_at = now();
`

const QSelectUserAPIKey = `--sql 7c41367e-21a4-49f2-9f85-c73e85efa7e0
select api_key
from user_api_keys
where user_id = $1::text
  and service = $2::text
limit 1;
`

const QUpsertUserAPIKey = `--sql 0945a039-a694-4285-98a9-369566c7db5d
insert into user_api_keys (id, user_id, service, api_key, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, now(), now())
on conflict (user_id, service) do update set
    api_key = excluded.api_key,
    updated_at = now();
`
